package services_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"competition-ledger/models"
	"competition-ledger/testutil"
)

func TestFinalizeGuards(t *testing.T) {
	db := testutil.SetupTestDB(t)
	app := testutil.NewTestApp(db, defaultPolicy(), nil)

	running := testutil.CreateTestCompetition(t, db,
		"org", time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 5, 100)
	ended := testutil.CreateTestCompetition(t, db,
		"org", time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour), 5, 0)

	// Only the organizer may finalize
	resp := testutil.DoRequest(t, app, testutil.JSONRequest(
		"POST", fmt.Sprintf("/competitions/%d/finalize", ended.ID), nil, "stranger", ""))
	testutil.AssertStatus(t, resp, http.StatusForbidden)
	testutil.AssertErrorCode(t, resp, "UNAUTHORIZED")

	// Not before the window closes
	resp = testutil.DoRequest(t, app, testutil.JSONRequest(
		"POST", fmt.Sprintf("/competitions/%d/finalize", running.ID), nil, "org", ""))
	testutil.AssertStatus(t, resp, http.StatusConflict)
	testutil.AssertErrorCode(t, resp, "STILL_ACTIVE")

	var got models.Competition
	db.First(&got, "id = ?", running.ID)
	if got.Finalized || got.PrizeBalance != 100 {
		t.Errorf("Rejected finalize must not touch state: finalized=%v balance=%d", got.Finalized, got.PrizeBalance)
	}

	// Unknown competition
	resp = testutil.DoRequest(t, app, testutil.JSONRequest(
		"POST", "/competitions/9999/finalize", nil, "org", ""))
	testutil.AssertStatus(t, resp, http.StatusNotFound)
	testutil.AssertErrorCode(t, resp, "NOT_FOUND")
}

func TestFinalizeTieBreak(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, payments := testutil.StubPaymentsServer(t, false)
	app := testutil.NewTestApp(db, defaultPolicy(), payments)

	comp := testutil.CreateTestCompetition(t, db,
		"org", time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour), 5, 300)
	a := testutil.RegisterTestParticipant(t, db, comp.ID, "wallet-a", "Alice")
	b := testutil.RegisterTestParticipant(t, db, comp.ID, "wallet-b", "Bob")

	// Alice averages 70 from 60+80, Bob averages 70 from a single 70. The
	// earlier-issued entry keeps the tie.
	db.Model(&models.Participant{}).Where("id = ?", a.ID).
		Updates(map[string]interface{}{"total_score": 140, "judge_count": 2})
	db.Model(&models.Participant{}).Where("id = ?", b.ID).
		Updates(map[string]interface{}{"total_score": 70, "judge_count": 1})

	resp := testutil.DoRequest(t, app, testutil.JSONRequest(
		"POST", fmt.Sprintf("/competitions/%d/finalize", comp.ID), nil, "org", ""))
	testutil.AssertStatus(t, resp, http.StatusOK)

	var body struct {
		Winner *models.Participant `json:"winner"`
		Payout uint64              `json:"payout"`
	}
	testutil.DecodeJSON(t, resp, &body)
	if body.Winner == nil || body.Winner.ID != a.ID {
		t.Fatalf("Expected participant %d to win the tie, got %+v", a.ID, body.Winner)
	}
	if body.Payout != 300 {
		t.Errorf("Expected payout 300, got %d", body.Payout)
	}

	var got models.Competition
	db.First(&got, "id = ?", comp.ID)
	if got.WinnerID == nil || *got.WinnerID != a.ID {
		t.Error("Expected winner id persisted on the competition")
	}
}

func TestFinalizePayoutExactlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, payments := testutil.StubPaymentsServer(t, false)
	app := testutil.NewTestApp(db, defaultPolicy(), payments)

	comp := testutil.CreateTestCompetition(t, db,
		"org", time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour), 5, 500)
	a := testutil.RegisterTestParticipant(t, db, comp.ID, "wallet-a", "Alice")
	db.Model(&models.Participant{}).Where("id = ?", a.ID).
		Updates(map[string]interface{}{"total_score": 90, "judge_count": 1})

	path := fmt.Sprintf("/competitions/%d/finalize", comp.ID)
	resp := testutil.DoRequest(t, app, testutil.JSONRequest("POST", path, nil, "org", ""))
	testutil.AssertStatus(t, resp, http.StatusOK)

	var got models.Competition
	db.First(&got, "id = ?", comp.ID)
	if !got.Finalized || got.Active {
		t.Errorf("Expected finalized inactive competition, got finalized=%v active=%v", got.Finalized, got.Active)
	}
	if got.PrizeBalance != 0 {
		t.Errorf("Expected zeroed prize balance after payout, got %d", got.PrizeBalance)
	}

	var receipt models.PayoutReceipt
	if err := db.First(&receipt, "competition_id = ?", comp.ID).Error; err != nil {
		t.Fatalf("Expected a payout receipt: %v", err)
	}
	if receipt.Status != models.PayoutStatusSent || receipt.TransactionID == "" {
		t.Errorf("Expected sent receipt with transaction id, got status=%s tx=%q", receipt.Status, receipt.TransactionID)
	}
	if receipt.Recipient != "wallet-a" || receipt.Amount != 500 {
		t.Errorf("Expected 500 to wallet-a, got %d to %s", receipt.Amount, receipt.Recipient)
	}

	// Second finalize is rejected and no second transfer is recorded
	resp = testutil.DoRequest(t, app, testutil.JSONRequest("POST", path, nil, "org", ""))
	testutil.AssertStatus(t, resp, http.StatusConflict)
	testutil.AssertErrorCode(t, resp, "ALREADY_FINALIZED")

	var receipts int64
	db.Model(&models.PayoutReceipt{}).Where("competition_id = ?", comp.ID).Count(&receipts)
	if receipts != 1 {
		t.Errorf("Expected exactly one payout receipt, got %d", receipts)
	}

	// The receipt is queryable afterwards
	resp = testutil.DoRequest(t, app, testutil.JSONRequest(
		"GET", fmt.Sprintf("/competitions/%d/payout", comp.ID), nil, "", ""))
	testutil.AssertStatus(t, resp, http.StatusOK)
	var fetched models.PayoutReceipt
	testutil.DecodeJSON(t, resp, &fetched)
	if fetched.ID != receipt.ID {
		t.Errorf("Expected receipt %s from the query endpoint, got %s", receipt.ID, fetched.ID)
	}
}

func TestFinalizeTransferFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, payments := testutil.StubPaymentsServer(t, true)
	app := testutil.NewTestApp(db, defaultPolicy(), payments)

	comp := testutil.CreateTestCompetition(t, db,
		"org", time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour), 5, 500)
	a := testutil.RegisterTestParticipant(t, db, comp.ID, "wallet-a", "Alice")
	db.Model(&models.Participant{}).Where("id = ?", a.ID).
		Updates(map[string]interface{}{"total_score": 90, "judge_count": 1})

	resp := testutil.DoRequest(t, app, testutil.JSONRequest(
		"POST", fmt.Sprintf("/competitions/%d/finalize", comp.ID), nil, "org", ""))
	testutil.AssertStatus(t, resp, http.StatusBadGateway)
	testutil.AssertErrorCode(t, resp, "TRANSFER_FAILED")

	// The ledger-side state committed before the transfer: the competition
	// stays finalized and the balance stays zero.
	var got models.Competition
	db.First(&got, "id = ?", comp.ID)
	if !got.Finalized {
		t.Error("Expected competition to stay finalized after a failed transfer")
	}
	if got.PrizeBalance != 0 {
		t.Errorf("Expected prize balance to stay zero after a failed transfer, got %d", got.PrizeBalance)
	}

	var receipt models.PayoutReceipt
	if err := db.First(&receipt, "competition_id = ?", comp.ID).Error; err != nil {
		t.Fatalf("Expected a failure receipt: %v", err)
	}
	if receipt.Status != models.PayoutStatusFailed || receipt.FailureReason == "" {
		t.Errorf("Expected failed receipt with a reason, got status=%s reason=%q", receipt.Status, receipt.FailureReason)
	}
}

func TestFinalizeWithoutWinner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	app := testutil.NewTestApp(db, defaultPolicy(), nil)

	comp := testutil.CreateTestCompetition(t, db,
		"org", time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour), 5, 500)
	testutil.RegisterTestParticipant(t, db, comp.ID, "wallet-a", "Alice")

	// Nobody was judged: finalize succeeds, no payout, balance retained
	resp := testutil.DoRequest(t, app, testutil.JSONRequest(
		"POST", fmt.Sprintf("/competitions/%d/finalize", comp.ID), nil, "org", ""))
	testutil.AssertStatus(t, resp, http.StatusOK)

	var body struct {
		Winner *models.Participant `json:"winner"`
		Payout uint64              `json:"payout"`
	}
	testutil.DecodeJSON(t, resp, &body)
	if body.Winner != nil {
		t.Errorf("Expected no winner, got participant %d", body.Winner.ID)
	}
	if body.Payout != 0 {
		t.Errorf("Expected no payout, got %d", body.Payout)
	}

	var got models.Competition
	db.First(&got, "id = ?", comp.ID)
	if !got.Finalized || got.WinnerID != nil {
		t.Errorf("Expected finalized with no winner, got finalized=%v winner=%v", got.Finalized, got.WinnerID)
	}
	if got.PrizeBalance != 500 {
		t.Errorf("Expected retained balance 500 with no winner, got %d", got.PrizeBalance)
	}

	var receipts int64
	db.Model(&models.PayoutReceipt{}).Where("competition_id = ?", comp.ID).Count(&receipts)
	if receipts != 0 {
		t.Errorf("Expected no payout receipt without a winner, got %d", receipts)
	}
}
