package toolset

import "testing"

func TestDeriveToolName(t *testing.T) {
	tests := []struct {
		name    string
		display string
		id      string
		want    string
	}{
		{"simple", "CRM Sync", "i1", "crmSync_i1"},
		{"renamed keeps suffix", "CRM Sync v2", "i1", "crmSyncV2_i1"},
		{"single word", "Billing", "a7", "billing_a7"},
		{"all caps word", "SMS Notifier", "x9", "smsNotifier_x9"},
		{"punctuation dropped", "Order's  status!", "b2", "ordersStatus_b2"},
		{"uuid-ish id", "Pager", "550e8400", "pager_550e8400"},
		{"hyphens in id", "Pager", "550e-8400", "pager_550e8400"},
		{"empty display name", "", "i1", "webhook_i1"},
		{"symbols only display name", "!!!", "i1", "webhook_i1"},
		{"empty id", "CRM Sync", "", "crmSync"},
		{"digits in words", "v2 Export", "c3", "v2Export_c3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveToolName(tt.display, tt.id); got != tt.want {
				t.Errorf("DeriveToolName(%q, %q) = %q, want %q", tt.display, tt.id, got, tt.want)
			}
		})
	}
}

func TestDeriveToolNameDistinctForSameDisplayName(t *testing.T) {
	a := DeriveToolName("CRM Sync", "i1")
	b := DeriveToolName("CRM Sync", "i2")
	if a == b {
		t.Fatalf("identical display names must not collapse: both derived %q", a)
	}
}

func TestDeriveToolNameStableAcrossRename(t *testing.T) {
	// The console derives once at creation; this guards the function
	// itself being deterministic for the same inputs.
	first := DeriveToolName("CRM Sync", "i1")
	second := DeriveToolName("CRM Sync", "i1")
	if first != second {
		t.Fatalf("derivation not deterministic: %q vs %q", first, second)
	}
}
