// internal/service/template_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/isp-broadcast/internal/errors"
	"github.com/unclebandit/isp-broadcast/internal/model"
	"github.com/unclebandit/isp-broadcast/internal/repository"
)

type TemplateService struct {
	Repo repository.TemplateRepositoryInterface
	Log  logrus.FieldLogger
}

func (s *TemplateService) List(ctx context.Context) ([]model.Template, error) {
	templates, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for i := range templates {
		templates[i].Variables = ExtractVariables(templates[i].Content)
	}
	return templates, nil
}

// Get loads the template list and picks id from it; the remote API has no single-template read.
func (s *TemplateService) Get(ctx context.Context, id string) (*model.Template, error) {
	templates, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range templates {
		if templates[i].ID == id {
			return &templates[i], nil
		}
	}
	return nil, appErrors.NewValidation("templateId", fmt.Errorf("%w: %s", appErrors.ErrTemplateNotFound, id))
}

func (s *TemplateService) Create(ctx context.Context, t *model.Template) (*model.Template, error) {
	if err := validateTemplate(t); err != nil {
		return nil, err
	}
	created, err := s.Repo.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	created.Variables = ExtractVariables(created.Content)
	s.logger().WithFields(logrus.Fields{"template": created.ID, "variables": len(created.Variables)}).Info("template created")
	return created, nil
}

func (s *TemplateService) Update(ctx context.Context, t *model.Template) (*model.Template, error) {
	if err := validateTemplate(t); err != nil {
		return nil, err
	}
	updated, err := s.Repo.Update(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	updated.Variables = ExtractVariables(updated.Content)
	s.logger().WithFields(logrus.Fields{"template": updated.ID, "enabled": updated.Enabled}).Info("template updated")
	return updated, nil
}

// Test sends one rendered copy of a template to phoneNumber. Missing variables get their defaults.
func (s *TemplateService) Test(ctx context.Context, id, phoneNumber string, variables map[string]string) error {
	if strings.TrimSpace(phoneNumber) == "" {
		return appErrors.NewValidation("phoneNumber", fmt.Errorf("phone number is required"))
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !t.Enabled {
		return appErrors.NewValidation("templateId", appErrors.ErrTemplateDisabled)
	}

	values := ResolveVariables(t).Map()
	for k, v := range variables {
		values[k] = v
	}
	if err := s.Repo.Test(ctx, t.ID, phoneNumber, values); err != nil {
		return fmt.Errorf("test template: %w", err)
	}
	return nil
}

func validateTemplate(t *model.Template) error {
	if t == nil {
		return appErrors.NewValidation("template", fmt.Errorf("template is required"))
	}
	if strings.TrimSpace(t.ID) == "" {
		return appErrors.NewValidation("id", fmt.Errorf("id is required"))
	}
	if strings.ContainsAny(t.ID, " /\t\n") {
		return appErrors.NewValidation("id", fmt.Errorf("id must be a slug"))
	}
	if strings.TrimSpace(t.Name) == "" {
		return appErrors.NewValidation("name", fmt.Errorf("name is required"))
	}
	if strings.TrimSpace(t.Content) == "" {
		return appErrors.NewValidation("content", fmt.Errorf("content is required"))
	}
	return nil
}

func (s *TemplateService) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
