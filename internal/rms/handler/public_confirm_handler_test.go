package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
	"github.com/bitfantasy/nimo-rms/internal/rms/testutil"
)

// issueToken requests a confirm token for a shipped work order
func issueToken(t *testing.T, env *testEnv, workOrderID string) string {
	t.Helper()
	w := testutil.DoRequest(env.router, "POST", "/api/v1/work-orders/"+workOrderID+"/confirm-token", nil, env.ownerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("Request token failed: status=%d body=%s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	token := data["token"].(string)
	if token == "" {
		t.Fatal("Issued token is empty")
	}
	if url, _ := data["url"].(string); url == "" {
		t.Fatal("Issued token has no confirm URL")
	}
	return token
}

func TestRequestTokenRules(t *testing.T) {
	env := setupEnv(t)

	// Tokens can only be issued for shipped orders
	pending := seedWorkOrder(t, env, env.customer.ID, entity.StatusSubmitted)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/work-orders/"+pending.ID+"/confirm-token", nil, env.ownerToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Token for unshipped order: status=%d, want 400", w.Code)
	}

	// Only the owner may issue
	shipped := seedWorkOrder(t, env, env.customer.ID, entity.StatusShipped)
	w = testutil.DoRequest(env.router, "POST", "/api/v1/work-orders/"+shipped.ID+"/confirm-token", nil, env.staffToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Staff token issue: status=%d, want 403", w.Code)
	}

	// Re-issuing invalidates the previous token
	first := issueToken(t, env, shipped.ID)
	second := issueToken(t, env, shipped.ID)
	if first == second {
		t.Fatal("Re-issued token should differ from the first")
	}
	w = testutil.DoRequest(env.router, "GET", "/api/v1/public/confirm/"+first, nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Superseded token lookup: status=%d, want 404", w.Code)
	}
}

func TestPublicConfirmFlow(t *testing.T) {
	env := setupEnv(t)
	wo := seedWorkOrder(t, env, env.customer.ID, entity.StatusShipped)
	token := issueToken(t, env, wo.ID)

	// Anonymous lookup returns the public subset only
	w := testutil.DoRequest(env.router, "GET", "/api/v1/public/confirm/"+token, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Public lookup failed: status=%d body=%s", w.Code, w.Body.String())
	}
	view := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if view["status"] != entity.StatusShipped {
		t.Fatalf("Public view status = %v, want SHIPPED", view["status"])
	}
	if view["token_used"] != false {
		t.Fatalf("Fresh token should not be marked used")
	}
	if _, ok := view["customer_phone"]; ok {
		t.Fatal("Public view must not expose customer phone")
	}

	// Anonymous satisfied confirm advances the order
	w = testutil.DoRequest(env.router, "POST", "/api/v1/public/confirm/"+token,
		map[string]interface{}{"delivered": true, "satisfied": true}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Confirm failed: status=%d body=%s", w.Code, w.Body.String())
	}
	view = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if view["status"] != entity.StatusDelivered {
		t.Fatalf("Status after confirm = %v, want DELIVERED", view["status"])
	}
	if view["token_used"] != true {
		t.Fatal("Token should be marked used after confirm")
	}

	// The event is attributed to the order's customer
	var events []entity.WorkOrderEvent
	env.db.Where("work_order_id = ?", wo.ID).Order("created_at ASC").Find(&events)
	if len(events) != 1 {
		t.Fatalf("Event count = %d, want 1", len(events))
	}
	if events[0].ActorUserID == nil || *events[0].ActorUserID != env.customer.ID {
		t.Errorf("Event actor = %v, want customer %s", events[0].ActorUserID, env.customer.ID)
	}
	if events[0].ActorRole != entity.RoleCustomer {
		t.Errorf("Event actor role = %s, want CUSTOMER", events[0].ActorRole)
	}

	// Tokens are single use
	w = testutil.DoRequest(env.router, "POST", "/api/v1/public/confirm/"+token,
		map[string]interface{}{"delivered": true, "satisfied": true}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Second confirm: status=%d, want 400", w.Code)
	}

	// Used tokens remain viewable with the final status
	w = testutil.DoRequest(env.router, "GET", "/api/v1/public/confirm/"+token, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Used token lookup: status=%d, want 200", w.Code)
	}
}

func TestPublicConfirmDissatisfiedReopens(t *testing.T) {
	env := setupEnv(t)
	wo := seedWorkOrder(t, env, env.customer.ID, entity.StatusShipped)
	token := issueToken(t, env, wo.ID)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/public/confirm/"+token,
		map[string]interface{}{"delivered": true, "satisfied": false, "feedback": "wrong color back cover"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Dissatisfied confirm failed: status=%d body=%s", w.Code, w.Body.String())
	}
	view := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if view["status"] != entity.StatusReopened {
		t.Fatalf("Status = %v, want REOPENED", view["status"])
	}

	var reloaded entity.WorkOrder
	env.db.First(&reloaded, "id = ?", wo.ID)
	if reloaded.Notes != "Customer feedback: wrong color back cover" {
		t.Errorf("Notes = %q, want customer feedback line", reloaded.Notes)
	}
}

func TestPublicConfirmTokenErrors(t *testing.T) {
	env := setupEnv(t)

	// Unknown token
	w := testutil.DoRequest(env.router, "GET", "/api/v1/public/confirm/no-such-token", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Unknown token: status=%d, want 404", w.Code)
	}

	// Expired token
	wo := seedWorkOrder(t, env, env.customer.ID, entity.StatusShipped)
	expired := &entity.PublicConfirmToken{
		ID:          newTestID(),
		WorkOrderID: wo.ID,
		Token:       newTestID() + newTestID(),
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	if err := env.db.Create(expired).Error; err != nil {
		t.Fatalf("Failed to seed expired token: %v", err)
	}
	w = testutil.DoRequest(env.router, "GET", "/api/v1/public/confirm/"+expired.Token, nil, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expired token lookup: status=%d, want 403", w.Code)
	}
	w = testutil.DoRequest(env.router, "POST", "/api/v1/public/confirm/"+expired.Token,
		map[string]interface{}{"delivered": true, "satisfied": true}, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expired token confirm: status=%d, want 403", w.Code)
	}

	// Missing flags fail binding
	fresh := seedWorkOrder(t, env, env.customer.ID, entity.StatusShipped)
	token := issueToken(t, env, fresh.ID)
	w = testutil.DoRequest(env.router, "POST", "/api/v1/public/confirm/"+token,
		map[string]interface{}{"delivered": true}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Confirm without satisfied flag: status=%d, want 400", w.Code)
	}
}
