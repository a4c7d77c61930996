package enums

import "testing"

func TestDeriveAccountStatus(t *testing.T) {
	tests := []struct {
		name                       string
		charges, payouts, detailed bool
		want                       AccountStatus
	}{
		{name: "fully enabled", charges: true, payouts: true, want: AccountStatusActive},
		{name: "enabled without details flag", charges: true, payouts: true, detailed: false, want: AccountStatusActive},
		{name: "details submitted but payouts off", charges: true, payouts: false, detailed: true, want: AccountStatusRestricted},
		{name: "details submitted nothing enabled", detailed: true, want: AccountStatusRestricted},
		{name: "charges only", charges: true, want: AccountStatusPending},
		{name: "fresh account", want: AccountStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveAccountStatus(tt.charges, tt.payouts, tt.detailed); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestOrderStatusAwaitingPayment(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusOnHold} {
		if !s.AwaitingPayment() {
			t.Fatalf("%s should await payment", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusProcessing, OrderStatusCompleted, OrderStatusFailed} {
		if s.AwaitingPayment() {
			t.Fatalf("%s should not await payment", s)
		}
	}
}

func TestSettlementStateTerminal(t *testing.T) {
	if !SettlementStateSettled.IsTerminal() || !SettlementStatePartiallySettled.IsTerminal() {
		t.Fatalf("settled and partially_settled must be terminal")
	}
	if SettlementStateValidationFailed.IsTerminal() || SettlementStateUnsettled.IsTerminal() {
		t.Fatalf("validation_failed and unsettled must allow another attempt")
	}
}

func TestParseRatePolicy(t *testing.T) {
	if p, err := ParseRatePolicy(""); err != nil || p != RatePolicyPlatformDefault {
		t.Fatalf("empty policy should default, got %q %v", p, err)
	}
	if p, err := ParseRatePolicy(" Product_Override "); err != nil || p != RatePolicyProductOverride {
		t.Fatalf("expected product_override, got %q %v", p, err)
	}
	if _, err := ParseRatePolicy("per_line"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestParseHelpersRejectUnknown(t *testing.T) {
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatalf("expected error")
	}
	if TransferStatus("paid").IsValid() {
		t.Fatalf("expected unknown transfer status to be invalid")
	}
	if s, err := ParseSettlementState("partially_settled"); err != nil || s != SettlementStatePartiallySettled {
		t.Fatalf("unexpected parse result %q %v", s, err)
	}
	if OutboxEventType("order_created").IsValid() {
		t.Fatalf("expected unknown event type to be invalid")
	}
}
