// internal/service/variables.go
package service

import (
	"regexp"
	"strings"

	"github.com/unclebandit/isp-broadcast/internal/model"
)

// Variable enumerates the placeholders that have a representative default value.
type Variable int

const (
	VarCustomerName Variable = iota
	VarCustomerID
	VarInvoiceNumber
	VarAmount
	VarDueDate
	VarPackageName
	VarPackageSpeed
	VarPackagePrice
	VarPaymentMethod
	VarPaymentDate
	VarReferenceNumber
	VarUsername
	VarWifiName
	VarWifiPassword
	VarCompanyName
	VarSupportNumber
	VarDisruptionArea
	VarDisruptionStart
	VarDisruptionEnd
	VarDisruptionReason
	VarMaintenanceDate
	VarMaintenanceStart
	VarMaintenanceEnd
	VarMaintenanceArea
	VarEstimatedDuration

	variableCount
)

var variableTable = [variableCount]struct {
	name  string
	value string
}{
	VarCustomerName:      {"customerName", "John Doe"},
	VarCustomerID:        {"customerId", "CUST-0001"},
	VarInvoiceNumber:     {"invoiceNumber", "INV-2024-001"},
	VarAmount:            {"amount", "{{amount}}"}, // left as a marker until billing supplies a figure
	VarDueDate:           {"dueDate", "25 January 2024"},
	VarPackageName:       {"packageName", "Home Fiber 20"},
	VarPackageSpeed:      {"packageSpeed", "20 Mbps"},
	VarPackagePrice:      {"packagePrice", "250,000"},
	VarPaymentMethod:     {"paymentMethod", "Bank Transfer"},
	VarPaymentDate:       {"paymentDate", "20 January 2024"},
	VarReferenceNumber:   {"referenceNumber", "REF-20240120-001"},
	VarUsername:          {"username", "johndoe"},
	VarWifiName:          {"wifiName", "HomeFiber-5G"},
	VarWifiPassword:      {"wifiPassword", "fiber12345"},
	VarCompanyName:       {"companyName", "ISP Company"},
	VarSupportNumber:     {"supportNumber", "0800-123-4567"},
	VarDisruptionArea:    {"disruptionArea", "Central District"},
	VarDisruptionStart:   {"disruptionStart", "08:00"},
	VarDisruptionEnd:     {"disruptionEnd", "12:00"},
	VarDisruptionReason:  {"disruptionReason", "fiber cable cut"},
	VarMaintenanceDate:   {"maintenanceDate", "28 January 2024"},
	VarMaintenanceStart:  {"maintenanceStart", "01:00"},
	VarMaintenanceEnd:    {"maintenanceEnd", "04:00"},
	VarMaintenanceArea:   {"maintenanceArea", "North District"},
	VarEstimatedDuration: {"estimatedDuration", "3 hours"},
}

var variablesByName = func() map[string]Variable {
	m := make(map[string]Variable, variableCount)
	for v := Variable(0); v < variableCount; v++ {
		m[strings.ToLower(variableTable[v].name)] = v
	}
	return m
}()

func (v Variable) Name() string         { return variableTable[v].name }
func (v Variable) DefaultValue() string { return variableTable[v].value }

// LookupVariable matches a placeholder name case-insensitively.
func LookupVariable(name string) (Variable, bool) {
	v, ok := variablesByName[strings.ToLower(name)]
	return v, ok
}

// DefaultValue falls back to "[name]" so unresolved placeholders stay visible.
func DefaultValue(name string) string {
	if v, ok := LookupVariable(name); ok {
		return v.DefaultValue()
	}
	return "[" + name + "]"
}

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ExtractVariables returns placeholder names in first-seen order, without duplicates.
func ExtractVariables(content string) []string {
	matches := placeholderRe.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}

type VariableValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResolvedVariables keeps the template's placeholder order.
type ResolvedVariables []VariableValue

func (rv ResolvedVariables) Map() map[string]string {
	m := make(map[string]string, len(rv))
	for _, v := range rv {
		m[v.Name] = v.Value
	}
	return m
}

// ResolveVariables supplies a representative value for every placeholder in t.
func ResolveVariables(t *model.Template) ResolvedVariables {
	if t == nil {
		return nil
	}
	names := t.Variables
	if names == nil {
		names = ExtractVariables(t.Content)
	}
	out := make(ResolvedVariables, 0, len(names))
	for _, name := range names {
		out = append(out, VariableValue{Name: name, Value: DefaultValue(name)})
	}
	return out
}

// RenderTemplate substitutes every {{name}} found in data in a single pass.
// Substituted values are never re-scanned and unknown markers are left untouched.
func RenderTemplate(template string, data map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(marker string) string {
		name := marker[2 : len(marker)-2]
		if v, ok := data[name]; ok {
			return v
		}
		return marker
	})
}
