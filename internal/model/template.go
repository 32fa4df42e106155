// internal/model/template.go
package model

type Template struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	Enabled    bool     `json:"enabled"`
	UsageCount int      `json:"usageCount"`
	Variables  []string `json:"-"` // derived from Content on every load
}
