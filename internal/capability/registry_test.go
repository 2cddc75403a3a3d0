package capability

import "testing"

func mustSign(t *testing.T, tc ToolCard, secret string) ToolCard {
	t.Helper()
	checksum, err := ComputeChecksum(tc)
	if err != nil {
		t.Fatalf("ComputeChecksum: %v", err)
	}
	tc.Checksum = checksum
	sig, err := SignToolCard(tc, secret)
	if err != nil {
		t.Fatalf("SignToolCard: %v", err)
	}
	tc.Signature = sig
	return tc
}

func TestNewRegistryRejectsInvalidSignature(t *testing.T) {
	secret := "top-secret"
	tc := ToolCard{
		Name:        "add",
		Version:     "v1",
		Description: "adds two integers",
	}
	checksum, err := ComputeChecksum(tc)
	if err != nil {
		t.Fatalf("ComputeChecksum: %v", err)
	}
	tc.Checksum = checksum
	tc.Signature = "deadbeef"

	if _, err := NewRegistry([]ToolCard{tc}, secret, []string{"add"}); err == nil {
		t.Fatalf("expected signature validation to fail")
	}
}

func TestNewRegistryEnforcesRequiredTools(t *testing.T) {
	secret := "top-secret"
	fetch := mustSign(t, ToolCard{
		Name:        "fetch_bbc_headlines",
		Version:     "v1",
		Description: "fetches headlines",
	}, secret)

	cards := []ToolCard{fetch}
	if _, err := NewRegistry(cards, secret, []string{"fetch_bbc_headlines", "display_headlines_in_browser"}); err == nil {
		t.Fatalf("expected missing required tool to error")
	}
}

func TestNewRegistryPrefersLatestVersion(t *testing.T) {
	secret := "top-secret"
	old := mustSign(t, ToolCard{
		Name:    "fetch_bbc_headlines",
		Version: "v1",
	}, secret)
	newer := mustSign(t, ToolCard{
		Name:    "fetch_bbc_headlines",
		Version: "v1.1",
	}, secret)

	reg, err := NewRegistry([]ToolCard{old, newer}, secret, []string{"fetch_bbc_headlines"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	tool, ok := reg.Tool("fetch_bbc_headlines")
	if !ok {
		t.Fatalf("expected fetch_bbc_headlines tool to exist")
	}
	if tool.Version != "v1.1" {
		t.Fatalf("expected latest version, got %s", tool.Version)
	}
}

func TestRegistryUnknownToolLookup(t *testing.T) {
	reg, err := NewRegistry([]ToolCard{{Name: "add", Version: "v1"}}, "", nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, ok := reg.Tool("does_not_exist"); ok {
		t.Fatalf("expected lookup miss for unknown tool")
	}
}

func TestValidateToolCard(t *testing.T) {
	valid := ToolCard{
		Name:        "add",
		Version:     "v1",
		Description: "adds two integers",
		Params: []ParamSpec{
			{Name: "a", Type: "integer", Required: true},
			{Name: "b", Type: "integer", Required: true},
		},
	}
	if err := ValidateToolCard(valid); err != nil {
		t.Fatalf("expected valid tool card, got %v", err)
	}
	invalid := ToolCard{
		Name:    "",
		Version: "v1",
	}
	if err := ValidateToolCard(invalid); err == nil {
		t.Fatalf("expected validation failure for missing name")
	}
	badParam := ToolCard{
		Name:    "add",
		Version: "v1",
		Params:  []ParamSpec{{Name: "a", Type: "quaternion"}},
	}
	if err := ValidateToolCard(badParam); err == nil {
		t.Fatalf("expected validation failure for invalid param type")
	}
}

func TestVerifyChecksum(t *testing.T) {
	card := ToolCard{
		Name:    "add",
		Version: "v1",
		Params:  []ParamSpec{{Name: "a", Type: "integer"}},
	}
	checksum, err := ComputeChecksum(card)
	if err != nil {
		t.Fatalf("ComputeChecksum: %v", err)
	}
	card.Checksum = checksum
	if err := VerifyChecksum(card); err != nil {
		t.Fatalf("expected checksum to validate, got %v", err)
	}
	card.Checksum = "deadbeef"
	if err := VerifyChecksum(card); err == nil {
		t.Fatalf("expected checksum mismatch error")
	}
}

func TestCallSignature(t *testing.T) {
	card := ToolCard{
		Name: "draw_rectangle",
		Params: []ParamSpec{
			{Name: "width", Type: "integer"},
			{Name: "height", Type: "integer"},
			{Name: "text", Type: "string"},
		},
	}
	if got := card.CallSignature(); got != "draw_rectangle|width|height|text" {
		t.Fatalf("CallSignature = %q", got)
	}
}
