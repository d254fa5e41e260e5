package lifecycle

import (
	"testing"

	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
)

var allStatuses = []string{
	entity.StatusDraft,
	entity.StatusSubmitted,
	entity.StatusOwnerVerified,
	entity.StatusExternalDamageReported,
	entity.StatusDeviceInfoRecorded,
	entity.StatusDiagnosed,
	entity.StatusRepairing,
	entity.StatusStoredIn,
	entity.StatusReadyToShip,
	entity.StatusShipped,
	entity.StatusDelivered,
	entity.StatusCompleted,
	entity.StatusReopened,
	entity.StatusClosedAbnormal,
}

var allActions = []string{
	entity.ActionSubmit,
	entity.ActionVerify,
	entity.ActionReportExternalDamage,
	entity.ActionRecordDevice,
	entity.ActionDiagnose,
	entity.ActionRepair,
	entity.ActionStoreIn,
	entity.ActionReadyToShip,
	entity.ActionShip,
	entity.ActionCustomerConfirm,
	entity.ActionReopen,
	entity.ActionCloseAbnormal,
}

var allRoles = []string{entity.RoleOwner, entity.RoleStaff, entity.RoleCustomer}

func TestCanTransitionValidEdges(t *testing.T) {
	cases := []struct {
		from, action, to string
	}{
		{entity.StatusDraft, entity.ActionSubmit, entity.StatusSubmitted},
		{entity.StatusSubmitted, entity.ActionVerify, entity.StatusOwnerVerified},
		{entity.StatusOwnerVerified, entity.ActionReportExternalDamage, entity.StatusExternalDamageReported},
		{entity.StatusOwnerVerified, entity.ActionRecordDevice, entity.StatusDeviceInfoRecorded},
		{entity.StatusExternalDamageReported, entity.ActionShip, entity.StatusShipped},
		{entity.StatusDeviceInfoRecorded, entity.ActionDiagnose, entity.StatusDiagnosed},
		{entity.StatusDiagnosed, entity.ActionRepair, entity.StatusRepairing},
		{entity.StatusDiagnosed, entity.ActionStoreIn, entity.StatusStoredIn},
		{entity.StatusRepairing, entity.ActionStoreIn, entity.StatusStoredIn},
		{entity.StatusStoredIn, entity.ActionReadyToShip, entity.StatusReadyToShip},
		{entity.StatusReadyToShip, entity.ActionShip, entity.StatusShipped},
		{entity.StatusShipped, entity.ActionCustomerConfirm, entity.StatusDelivered},
		{entity.StatusShipped, entity.ActionReopen, entity.StatusReopened},
		{entity.StatusDelivered, entity.ActionCustomerConfirm, entity.StatusCompleted},
		{entity.StatusDelivered, entity.ActionReopen, entity.StatusReopened},
		{entity.StatusReopened, entity.ActionVerify, entity.StatusOwnerVerified},
	}
	for _, c := range cases {
		to, ok := CanTransition(c.from, c.action)
		if !ok {
			t.Errorf("expected %s + %s to be a valid transition", c.from, c.action)
			continue
		}
		if to != c.to {
			t.Errorf("%s + %s: expected target %s, got %s", c.from, c.action, c.to, to)
		}
	}
}

func TestCanTransitionCloseAbnormal(t *testing.T) {
	// Every non-terminal status except DRAFT, SHIPPED and DELIVERED can close abnormally.
	closable := map[string]bool{
		entity.StatusSubmitted:              true,
		entity.StatusOwnerVerified:          true,
		entity.StatusExternalDamageReported: true,
		entity.StatusDeviceInfoRecorded:     true,
		entity.StatusDiagnosed:              true,
		entity.StatusRepairing:              true,
		entity.StatusStoredIn:               true,
		entity.StatusReadyToShip:            true,
		entity.StatusReopened:               true,
	}
	for _, s := range allStatuses {
		to, ok := CanTransition(s, entity.ActionCloseAbnormal)
		if closable[s] {
			if !ok || to != entity.StatusClosedAbnormal {
				t.Errorf("expected CLOSE_ABNORMAL to be valid from %s", s)
			}
		} else if ok {
			t.Errorf("expected CLOSE_ABNORMAL to be invalid from %s", s)
		}
	}
}

func TestCanTransitionRejectsUnlistedPairs(t *testing.T) {
	// Build the set of declared edges, then check every other pair is rejected.
	valid := map[string]map[string]bool{}
	for from, edges := range Transitions {
		valid[from] = map[string]bool{}
		for _, e := range edges {
			valid[from][e.Action] = true
		}
	}
	for _, s := range allStatuses {
		for _, a := range allActions {
			if valid[s][a] {
				continue
			}
			if _, ok := CanTransition(s, a); ok {
				t.Errorf("expected %s + %s to be rejected", s, a)
			}
		}
	}
	if _, ok := CanTransition("NO_SUCH_STATUS", entity.ActionSubmit); ok {
		t.Error("expected unknown status to be rejected")
	}
	if _, ok := CanTransition(entity.StatusDraft, "NO_SUCH_ACTION"); ok {
		t.Error("expected unknown action to be rejected")
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range allStatuses {
		terminal := s == entity.StatusCompleted || s == entity.StatusClosedAbnormal
		if IsTerminal(s) != terminal {
			t.Errorf("IsTerminal(%s): expected %v", s, terminal)
		}
	}
	if IsTerminal("NO_SUCH_STATUS") {
		t.Error("unknown status must not be terminal")
	}
}

func TestAvailableActionsEmptyOnTerminal(t *testing.T) {
	wo := Ownership{CustomerUserID: "cust-1"}
	for _, s := range []string{entity.StatusCompleted, entity.StatusClosedAbnormal} {
		for _, role := range allRoles {
			got := AvailableActions(s, role, wo, "cust-1")
			if len(got) != 0 {
				t.Errorf("expected no available actions on %s for %s, got %v", s, role, got)
			}
		}
	}
}

func TestAvailableActionsDeclarationOrder(t *testing.T) {
	wo := Ownership{CustomerUserID: "cust-1"}
	// OWNER on SUBMITTED sees VERIFY then CLOSE_ABNORMAL, in that order.
	got := AvailableActions(entity.StatusSubmitted, entity.RoleOwner, wo, "owner-1")
	want := []string{entity.ActionVerify, entity.ActionCloseAbnormal}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	// STAFF on DIAGNOSED sees REPAIR then STORE_IN; CLOSE_ABNORMAL is OWNER only.
	got = AvailableActions(entity.StatusDiagnosed, entity.RoleStaff, wo, "staff-1")
	want = []string{entity.ActionRepair, entity.ActionStoreIn}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAvailableActionsRoleFiltering(t *testing.T) {
	wo := Ownership{CustomerUserID: "cust-1"}

	// CUSTOMER on SHIPPED (own order) can confirm or reopen.
	got := AvailableActions(entity.StatusShipped, entity.RoleCustomer, wo, "cust-1")
	if len(got) != 2 || got[0] != entity.ActionCustomerConfirm || got[1] != entity.ActionReopen {
		t.Errorf("expected [CUSTOMER_CONFIRM REOPEN], got %v", got)
	}

	// CUSTOMER on someone else's SHIPPED order sees nothing.
	got = AvailableActions(entity.StatusShipped, entity.RoleCustomer, wo, "cust-2")
	if len(got) != 0 {
		t.Errorf("expected no actions for a foreign customer, got %v", got)
	}

	// STAFF cannot ship.
	got = AvailableActions(entity.StatusReadyToShip, entity.RoleStaff, wo, "staff-1")
	if len(got) != 0 {
		t.Errorf("expected no actions for STAFF on READY_TO_SHIP, got %v", got)
	}
}

func TestCanPerformEvaluationOrder(t *testing.T) {
	wo := Ownership{CustomerUserID: "cust-1"}

	if ok, reason := CanPerform("NO_SUCH_ACTION", entity.RoleOwner, wo, "owner-1"); ok || reason != "unknown action" {
		t.Errorf("expected unknown action rejection, got ok=%v reason=%q", ok, reason)
	}
	if ok, reason := CanPerform(entity.ActionShip, entity.RoleStaff, wo, "staff-1"); ok || reason != "role not permitted for this action" {
		t.Errorf("expected role rejection, got ok=%v reason=%q", ok, reason)
	}
	if ok, reason := CanPerform(entity.ActionReopen, entity.RoleCustomer, wo, "cust-2"); ok || reason != "customer can only operate on their own work orders" {
		t.Errorf("expected ownership rejection, got ok=%v reason=%q", ok, reason)
	}
	if ok, _ := CanPerform(entity.ActionReopen, entity.RoleCustomer, wo, "cust-1"); !ok {
		t.Error("expected owning customer to be allowed to reopen")
	}
	// OWNER bypasses the customer ownership check.
	if ok, _ := CanPerform(entity.ActionReopen, entity.RoleOwner, wo, "owner-1"); !ok {
		t.Error("expected OWNER to reopen any order")
	}
}

func TestCanPerformRequireAssignment(t *testing.T) {
	// No shipped action enables the flag; exercise it with a synthetic entry.
	const action = "TEST_ASSIGNED_ONLY"
	ActionPermissions[action] = ActionPermission{
		Roles:             []string{entity.RoleStaff},
		RequireAssignment: true,
	}
	defer delete(ActionPermissions, action)

	staffID := "staff-1"
	unassigned := Ownership{CustomerUserID: "cust-1"}
	if ok, reason := CanPerform(action, entity.RoleStaff, unassigned, staffID); ok || reason != "staff can only operate on assigned work orders" {
		t.Errorf("expected assignment rejection, got ok=%v reason=%q", ok, reason)
	}

	other := "staff-2"
	assignedToOther := Ownership{CustomerUserID: "cust-1", AssignedToUserID: &other}
	if ok, _ := CanPerform(action, entity.RoleStaff, assignedToOther, staffID); ok {
		t.Error("expected rejection when assigned to another staff member")
	}

	assigned := Ownership{CustomerUserID: "cust-1", AssignedToUserID: &staffID}
	if ok, _ := CanPerform(action, entity.RoleStaff, assigned, staffID); !ok {
		t.Error("expected assigned staff to be allowed")
	}
}

func TestCanEditField(t *testing.T) {
	// DRAFT: everyone edits the full set.
	for _, role := range allRoles {
		if !CanEditField(entity.StatusDraft, "customer_phone", role) {
			t.Errorf("expected %s to edit customer_phone on DRAFT", role)
		}
	}
	// SUBMITTED: STAFF is locked out.
	if CanEditField(entity.StatusSubmitted, "notes", entity.RoleStaff) {
		t.Error("expected STAFF edit on SUBMITTED to be rejected")
	}
	if !CanEditField(entity.StatusSubmitted, "customer_address", entity.RoleCustomer) {
		t.Error("expected CUSTOMER to edit customer_address on SUBMITTED")
	}
	// Mid-stage: OWNER only, order_no and notes only.
	if !CanEditField(entity.StatusRepairing, "notes", entity.RoleOwner) {
		t.Error("expected OWNER to edit notes on REPAIRING")
	}
	if CanEditField(entity.StatusRepairing, "customer_name", entity.RoleOwner) {
		t.Error("expected customer_name edit on REPAIRING to be rejected")
	}
	if CanEditField(entity.StatusRepairing, "notes", entity.RoleCustomer) {
		t.Error("expected CUSTOMER edit on REPAIRING to be rejected")
	}
	// SHIPPED: order_no only.
	if !CanEditField(entity.StatusShipped, "order_no", entity.RoleOwner) {
		t.Error("expected OWNER to edit order_no on SHIPPED")
	}
	if CanEditField(entity.StatusShipped, "notes", entity.RoleOwner) {
		t.Error("expected notes edit on SHIPPED to be rejected")
	}
	// Terminal and post-delivery statuses are frozen for everyone.
	for _, s := range []string{entity.StatusDelivered, entity.StatusCompleted, entity.StatusClosedAbnormal} {
		for _, role := range allRoles {
			if CanEditField(s, "order_no", role) {
				t.Errorf("expected no edits on %s for %s", s, role)
			}
		}
	}
	if CanEditField("NO_SUCH_STATUS", "notes", entity.RoleOwner) {
		t.Error("expected unknown status to reject edits")
	}
}

func TestResolveCustomerConfirm(t *testing.T) {
	cases := []struct {
		status               string
		delivered, satisfied bool
		action, to           string
	}{
		{entity.StatusShipped, true, true, entity.ActionCustomerConfirm, entity.StatusDelivered},
		{entity.StatusDelivered, true, true, entity.ActionCustomerConfirm, entity.StatusCompleted},
		{entity.StatusShipped, false, true, entity.ActionReopen, entity.StatusReopened},
		{entity.StatusShipped, true, false, entity.ActionReopen, entity.StatusReopened},
		{entity.StatusShipped, false, false, entity.ActionReopen, entity.StatusReopened},
		{entity.StatusDelivered, true, false, entity.ActionReopen, entity.StatusReopened},
		{entity.StatusDelivered, false, false, entity.ActionReopen, entity.StatusReopened},
	}
	for _, c := range cases {
		action, to := ResolveCustomerConfirm(c.status, c.delivered, c.satisfied)
		if action != c.action || to != c.to {
			t.Errorf("ResolveCustomerConfirm(%s, %v, %v): expected (%s, %s), got (%s, %s)",
				c.status, c.delivered, c.satisfied, c.action, c.to, action, to)
		}
	}
}

func TestTransitionTargetsAreKnownStatuses(t *testing.T) {
	known := map[string]bool{}
	for _, s := range allStatuses {
		known[s] = true
	}
	for from, edges := range Transitions {
		if !known[from] {
			t.Errorf("transition table declares unknown source status %s", from)
		}
		for _, e := range edges {
			if !known[e.To] {
				t.Errorf("%s + %s targets unknown status %s", from, e.Action, e.To)
			}
			if _, ok := ActionPermissions[e.Action]; !ok {
				t.Errorf("action %s has no permission entry", e.Action)
			}
		}
	}
}
