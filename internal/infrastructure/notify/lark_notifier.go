// Package notify delivers domain events to outside channels. Everything
// here is best-effort: a lost notification never blocks billing state.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/domain/event"
)

// Config holds Lark notifier configuration
type Config struct {
	AppID     string
	AppSecret string

	// ChatID is the group chat receiving billing notifications.
	ChatID string
}

// LarkNotifier implements port.Notifier by posting event summaries into a
// Lark group chat.
type LarkNotifier struct {
	client *lark.Client
	chatID string
	logger *zap.Logger
}

// NewLarkNotifier creates a Lark notifier
func NewLarkNotifier(cfg Config, logger *zap.Logger) *LarkNotifier {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	return &LarkNotifier{
		client: client,
		chatID: cfg.ChatID,
		logger: logger,
	}
}

// Notify posts a short text summary of the event to the configured chat
func (n *LarkNotifier) Notify(ctx context.Context, evt *event.Event) error {
	text, err := json.Marshal(map[string]string{"text": summarize(evt)})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(n.chatID).
			MsgType("text").
			Content(string(text)).
			Build()).
		Build()

	resp, err := n.client.Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("event_type", string(evt.Type)),
			zap.Error(err))
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if !resp.Success() {
		n.logger.Error("Notification API returned failure",
			zap.String("event_type", string(evt.Type)),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("notification API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	return nil
}

// summarize renders a one-line human message per event type
func summarize(evt *event.Event) string {
	claimNumber := evt.PayloadString("claim_number")

	switch evt.Type {
	case event.TypeUnitSubmitted:
		return fmt.Sprintf("Unit entry %d submitted for review", evt.UnitID)
	case event.TypeUnitApproved:
		return fmt.Sprintf("Unit entry %d approved", evt.UnitID)
	case event.TypeUnitDisputed:
		return fmt.Sprintf("Unit entry %d disputed (%s)", evt.UnitID, evt.PayloadString("category"))
	case event.TypeUnitDisputeResolved:
		return fmt.Sprintf("Dispute on unit entry %d resolved: %s", evt.UnitID, evt.PayloadString("action"))
	case event.TypeClaimCreated:
		return fmt.Sprintf("Claim %s created, total %s", claimNumber, evt.PayloadString("total"))
	case event.TypeClaimApproved:
		return fmt.Sprintf("Claim %s approved", claimNumber)
	case event.TypeClaimSubmitted:
		return fmt.Sprintf("Claim %s submitted, due %s", claimNumber, evt.PayloadString("due_date"))
	case event.TypeClaimPaymentMade:
		return fmt.Sprintf("Payment of %s recorded on claim %s, balance %s",
			evt.PayloadString("amount"), claimNumber, evt.PayloadString("balance"))
	case event.TypeClaimPaid:
		return fmt.Sprintf("Claim %s fully paid", claimNumber)
	case event.TypeClaimExported:
		return fmt.Sprintf("Claim %s exported as %s", claimNumber, evt.PayloadString("format"))
	default:
		return fmt.Sprintf("Billing event: %s", evt.Type)
	}
}

// Verify interface compliance
var _ port.Notifier = (*LarkNotifier)(nil)
