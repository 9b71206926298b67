package handlers

import (
	"net/http"
	"time"

	"github.com/devmsrajput/yt-backend/internal/envelope"
	"github.com/devmsrajput/yt-backend/internal/metrics"
	"github.com/devmsrajput/yt-backend/internal/query"
)

// SubscriptionHandler toggles and lists channel subscriptions.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Metrics       metrics.Recorder
	NowFunc       func() time.Time
}

type subscriptionState struct {
	Subscribed bool `json:"subscribed"`
}

// Toggle handles POST /subscription/subscribe/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Subscriptions == nil {
		unavailable(ctx, w, "subscriptions")
		return
	}

	channelID, err := pathID(r, "channelId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	subscriberID := callerID(r)
	if channelID == subscriberID {
		envelope.Error(ctx, w, http.StatusBadRequest, "you cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, subscriberID, channelID, nowUTC(h.NowFunc))
	if err != nil {
		respondError(ctx, w, err, "channel not found")
		return
	}
	recorderOr(h.Metrics).RecordToggle("subscription", subscribed)

	message := "Unsubscribed successfully."
	if subscribed {
		message = "Subscribed successfully."
	}
	envelope.Write(ctx, w, http.StatusOK, subscriptionState{Subscribed: subscribed}, message)
}

// Subscribers handles GET /subscription/subscribers/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Subscriptions == nil {
		unavailable(ctx, w, "subscriptions")
		return
	}

	channelID, err := pathID(r, "channelId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	page, err := query.ParsePage(r.URL.Query())
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	subscribers, err := h.Subscriptions.Subscribers(ctx, channelID, page)
	if err != nil {
		respondError(ctx, w, err, "channel not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, subscribers, "Subscribers fetched successfully")
}

// Subscribed handles GET /subscription/subscribed/{subscriberId}.
func (h SubscriptionHandler) Subscribed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Subscriptions == nil {
		unavailable(ctx, w, "subscriptions")
		return
	}

	subscriberID, err := pathID(r, "subscriberId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	page, err := query.ParsePage(r.URL.Query())
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	channels, err := h.Subscriptions.Subscribed(ctx, subscriberID, page)
	if err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, channels, "Subscribed channels fetched successfully")
}
