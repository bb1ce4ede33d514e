package services_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"competition-ledger/models"
	"competition-ledger/testutil"
)

func TestNotificationFeed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	app := testutil.NewTestApp(db, defaultPolicy(), nil)

	comp := testutil.CreateTestCompetition(t, db,
		"org", time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 5, 0)

	// Each successful mutation leaves a feed entry
	form := url.Values{}
	form.Set("name", "Alice")
	resp := testutil.DoRequest(t, app, testutil.FormRequest(
		"POST", fmt.Sprintf("/competitions/%d/register", comp.ID), form, "wallet-a"))
	testutil.AssertStatus(t, resp, http.StatusCreated)

	resp = testutil.DoRequest(t, app, testutil.JSONRequest(
		"POST", fmt.Sprintf("/competitions/%d/judges", comp.ID),
		map[string]string{"wallet": "judge-1", "name": "Judy"}, "org", ""))
	testutil.AssertStatus(t, resp, http.StatusCreated)

	resp = testutil.DoRequest(t, app, testutil.JSONRequest(
		"GET", fmt.Sprintf("/competitions/%d/notifications", comp.ID), nil, "", ""))
	testutil.AssertStatus(t, resp, http.StatusOK)

	var feed []models.Notification
	testutil.DecodeJSON(t, resp, &feed)
	if len(feed) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(feed))
	}
	if feed[0].Kind != models.NotificationParticipantJoined {
		t.Errorf("Expected %s first, got %s", models.NotificationParticipantJoined, feed[0].Kind)
	}
	if feed[1].Kind != models.NotificationJudgeAuthorized {
		t.Errorf("Expected %s second, got %s", models.NotificationJudgeAuthorized, feed[1].Kind)
	}
	if feed[0].Actor != "wallet-a" {
		t.Errorf("Expected actor wallet-a, got %s", feed[0].Actor)
	}
}

func TestNotificationFeedSinceFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	app := testutil.NewTestApp(db, defaultPolicy(), nil)

	comp := testutil.CreateTestCompetition(t, db,
		"org", time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 5, 0)
	form := url.Values{}
	form.Set("name", "Alice")
	resp := testutil.DoRequest(t, app, testutil.FormRequest(
		"POST", fmt.Sprintf("/competitions/%d/register", comp.ID), form, "wallet-a"))
	testutil.AssertStatus(t, resp, http.StatusCreated)

	// A cursor past the last entry yields an empty feed
	since := time.Now().Add(time.Minute).Format(time.RFC3339)
	resp = testutil.DoRequest(t, app, testutil.JSONRequest(
		"GET", fmt.Sprintf("/competitions/%d/notifications?since=%s", comp.ID, url.QueryEscape(since)), nil, "", ""))
	testutil.AssertStatus(t, resp, http.StatusOK)
	var feed []models.Notification
	testutil.DecodeJSON(t, resp, &feed)
	if len(feed) != 0 {
		t.Errorf("Expected empty feed past the cursor, got %d entries", len(feed))
	}

	// A malformed cursor is rejected
	resp = testutil.DoRequest(t, app, testutil.JSONRequest(
		"GET", fmt.Sprintf("/competitions/%d/notifications?since=yesterday", comp.ID), nil, "", ""))
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
}
