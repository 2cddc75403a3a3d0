package capability

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ParamSpec describes one positional tool argument. Order matters: the
// executor coerces pipe-delimited arguments against Params in order.
type ParamSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // string, integer, number, int_array
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
}

// ToolCard represents registry metadata for a callable tool.
type ToolCard struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params"`
	Returns     string      `json:"returns"`
	SideEffects []string    `json:"side_effects,omitempty"`
	Visual      bool        `json:"visual"`
	Checksum    string      `json:"checksum"`
	Signature   string      `json:"signature"`
}

// Signature renders the card as "name|p1|p2" for prompt catalogues.
func (tc ToolCard) CallSignature() string {
	parts := make([]string, 0, len(tc.Params)+1)
	parts = append(parts, tc.Name)
	for _, p := range tc.Params {
		parts = append(parts, p.Name)
	}
	return strings.Join(parts, "|")
}

// Registry holds validated ToolCards keyed by tool name.
type Registry struct {
	tools map[string]ToolCard
}

// ErrToolMissing indicates a required tool is not registered.
var ErrToolMissing = fmt.Errorf("required tool missing")

// NewRegistry validates ToolCards and ensures required tools exist. For
// duplicate names the highest version wins.
func NewRegistry(cards []ToolCard, signingSecret string, required []string) (*Registry, error) {
	reg := &Registry{tools: make(map[string]ToolCard)}
	for _, tc := range cards {
		if err := validateSignature(tc, signingSecret); err != nil {
			return nil, fmt.Errorf("tool %s@%s signature invalid: %w", tc.Name, tc.Version, err)
		}
		existing, ok := reg.tools[tc.Name]
		if !ok || versionGreater(tc.Version, existing.Version) {
			reg.tools[tc.Name] = tc
		}
	}
	for _, r := range required {
		if _, ok := reg.tools[r]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolMissing, r)
		}
	}
	return reg, nil
}

// Tool returns the ToolCard for a tool name.
func (r *Registry) Tool(name string) (ToolCard, bool) {
	if r == nil {
		return ToolCard{}, false
	}
	tc, ok := r.tools[name]
	return tc, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Cards returns all registered ToolCards sorted by name.
func (r *Registry) Cards() []ToolCard {
	if r == nil {
		return nil
	}
	out := make([]ToolCard, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, r.tools[name])
	}
	return out
}

var paramTypes = map[string]struct{}{
	"string":    {},
	"integer":   {},
	"number":    {},
	"int_array": {},
}

// ValidateToolCard checks structural validity of a card before registration.
func ValidateToolCard(tc ToolCard) error {
	if tc.Name == "" {
		return fmt.Errorf("tool card missing name")
	}
	if tc.Version == "" {
		return fmt.Errorf("tool card %s missing version", tc.Name)
	}
	for _, p := range tc.Params {
		if p.Name == "" {
			return fmt.Errorf("tool %s has a param without a name", tc.Name)
		}
		if _, ok := paramTypes[p.Type]; !ok {
			return fmt.Errorf("tool %s param %s has invalid type %q", tc.Name, p.Name, p.Type)
		}
	}
	return nil
}

// VerifyChecksum recomputes the card checksum and compares it to the stored one.
func VerifyChecksum(tc ToolCard) error {
	expected, err := ComputeChecksum(tc)
	if err != nil {
		return err
	}
	if expected != tc.Checksum {
		return fmt.Errorf("checksum mismatch for tool %s", tc.Name)
	}
	return nil
}

// ComputeChecksum returns a deterministic hash of the ToolCard payload (excluding signature field).
func ComputeChecksum(tc ToolCard) (string, error) {
	payload := map[string]interface{}{
		"name":         tc.Name,
		"version":      tc.Version,
		"description":  tc.Description,
		"params":       tc.Params,
		"returns":      tc.Returns,
		"side_effects": tc.SideEffects,
		"visual":       tc.Visual,
	}
	normalized, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:]), nil
}

// SignToolCard computes an HMAC signature using the signing secret.
func SignToolCard(tc ToolCard, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is empty")
	}
	checksum, err := ComputeChecksum(tc)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(checksum))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func validateSignature(tc ToolCard, secret string) error {
	if secret == "" {
		return nil
	}
	expected, err := SignToolCard(tc, secret)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(tc.Signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func versionGreater(a, b string) bool {
	if a == b {
		return false
	}
	// naive semver compare
	return versionCompare(splitVersion(a), splitVersion(b)) > 0
}

func splitVersion(v string) []int {
	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		fmt.Sscanf(p, "%d", &out[i])
	}
	return out
}

func versionCompare(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai, bi := 0, 0
		if i < len(a) {
			ai = a[i]
		}
		if i < len(b) {
			bi = b[i]
		}
		if ai > bi {
			return 1
		}
		if ai < bi {
			return -1
		}
	}
	return 0
}
