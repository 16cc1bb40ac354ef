package admin

import (
	"github.com/platinummonkey/extpoint/pkg/plugins"
)

// ModuleResponse describes one module
type ModuleResponse struct {
	Name            string              `json:"name"`
	Path            string              `json:"path,omitempty"`
	DisplayName     string              `json:"display_name,omitempty"`
	Description     string              `json:"description,omitempty"`
	Icon            string              `json:"icon,omitempty"`
	ExtensionPoints []PointResponse     `json:"extension_points,omitempty"`
	Extensions      []ExtensionResponse `json:"extensions,omitempty"`
}

// PointResponse describes one extension point
type PointResponse struct {
	Point       string `json:"point"`
	Capability  string `json:"capability"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// ExtensionResponse describes one extension registration
type ExtensionResponse struct {
	Class        string `json:"class"`
	Point        string `json:"point"`
	Module       string `json:"module"`
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
	Enabled      bool   `json:"enabled"`
	FeatureToken string `json:"feature_token,omitempty"`
}

// HealthResponse reports whether the registry built
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ErrorResponse is returned for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToModuleResponse converts m; detailed includes its points and extensions
func ToModuleResponse(m *plugins.ModuleInfo, detailed bool) ModuleResponse {
	resp := ModuleResponse{
		Name:        m.Ref.Name,
		Path:        m.Path,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Icon:        m.Icon,
	}
	if !detailed {
		return resp
	}

	for _, p := range m.ExtensionPoints {
		resp.ExtensionPoints = append(resp.ExtensionPoints, ToPointResponse(p))
	}
	for _, e := range m.Extensions {
		resp.Extensions = append(resp.Extensions, ToExtensionResponse(e))
	}
	return resp
}

// ToPointResponse converts p
func ToPointResponse(p plugins.ExtensionPointInfo) PointResponse {
	return PointResponse{
		Point:       p.PointRef.Name,
		Capability:  p.CapabilityRef.Name,
		Name:        p.Name,
		Description: p.Description,
	}
}

// ToExtensionResponse converts e
func ToExtensionResponse(e plugins.ExtensionInfo) ExtensionResponse {
	return ExtensionResponse{
		Class:        e.ClassName(),
		Point:        e.PointRef.Name,
		Module:       e.ModuleRef.Name,
		Name:         e.Name,
		Description:  e.Description,
		Enabled:      e.Enabled,
		FeatureToken: e.FeatureToken,
	}
}
