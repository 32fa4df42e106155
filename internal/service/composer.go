// internal/service/composer.go
package service

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/unclebandit/isp-broadcast/internal/errors"
	"github.com/unclebandit/isp-broadcast/internal/model"
)

type ComposeInput struct {
	Name     string
	Scope    model.RecipientScope
	Template *model.Template
	FreeText string
}

// Composition is ready-to-send content. Only Composer produces one that dispatch accepts.
type Composition struct {
	Name           string            `json:"name"`
	Recipients     []string          `json:"recipients"`
	Message        string            `json:"message"`
	RecipientCount int               `json:"recipientCount"`
	TemplateID     string            `json:"templateId,omitempty"`
	Variables      map[string]string `json:"variables"`

	composed bool
}

type Composer struct {
	Recipients *RecipientResolver
	Now        func() time.Time
}

// Compose validates the selection and renders the message. It makes no remote call.
func (c *Composer) Compose(in ComposeInput) (*Composition, error) {
	if in.Template != nil && !in.Template.Enabled {
		return nil, appErrors.NewValidation("templateId", appErrors.ErrTemplateDisabled)
	}
	if in.Template == nil && strings.TrimSpace(in.FreeText) == "" {
		return nil, appErrors.NewValidation("message", appErrors.ErrEmptyMessage)
	}

	res, err := c.Recipients.Resolve(in.Scope)
	if err != nil {
		return nil, err
	}
	if !res.Sendable || res.GroupToken == "" {
		return nil, appErrors.NewValidation("regionId", appErrors.ErrRegionRequired)
	}

	comp := &Composition{
		Name:           in.Name,
		Recipients:     []string{res.GroupToken},
		RecipientCount: res.Count,
		Variables:      map[string]string{},
		composed:       true,
	}
	if comp.Name == "" {
		comp.Name = "Broadcast " + c.now().Format("2006-01-02 15:04")
	}

	if in.Template != nil {
		values := ResolveVariables(in.Template).Map()
		comp.TemplateID = in.Template.ID
		comp.Variables = values
		comp.Message = RenderTemplate(in.Template.Content, values)
	} else {
		comp.Message = in.FreeText
	}

	if strings.TrimSpace(comp.Message) == "" {
		return nil, appErrors.NewValidation("message", fmt.Errorf("template %s renders to an empty message", comp.TemplateID))
	}
	return comp, nil
}

// Preview is Compose under another name: it is already read-only.
func (c *Composer) Preview(in ComposeInput) (*Composition, error) {
	return c.Compose(in)
}

func (c *Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
