package whatsapp

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BusinessAccountObject is the only webhook object this service processes.
const BusinessAccountObject = "whatsapp_business_account"

// Verifier answers the subscription handshake.
type Verifier struct {
	token string
}

// NewVerifier builds a verifier for the configured verification secret.
func NewVerifier(token string) *Verifier {
	return &Verifier{token: token}
}

// Verify returns challenge iff mode is "subscribe" and token equals the
// configured secret exactly. It fails closed when no secret is configured.
func (v *Verifier) Verify(mode, token, challenge string) (string, error) {
	if v.token == "" || mode != "subscribe" {
		return "", ErrVerificationFailed
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.token)) != 1 {
		return "", ErrVerificationFailed
	}
	return challenge, nil
}

// ParseEvent converts a webhook body into typed messages in one pass.
// Envelopes for other objects are returned without looking further. Message
// types nobody handles are counted in Skipped. A message that fails
// validation is recorded in Invalid and its siblings are still returned;
// only a body that is not an envelope is an error.
func ParseEvent(body []byte) (*Event, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed("body is not a webhook envelope", err)
	}

	ev := &Event{Object: payload.Object}
	if payload.Object != BusinessAccountObject {
		return ev, nil
	}

	for i, entry := range payload.Entry {
		for j, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			ev.Statuses += len(change.Value.Statuses)

			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for k, wm := range change.Value.Messages {
				msg, err := convertMessage(wm, names[wm.From])
				if err != nil {
					ev.Invalid = append(ev.Invalid, InvalidMessage{
						Path:      fmt.Sprintf("entry[%d].changes[%d].messages[%d]", i, j, k),
						MessageID: wm.ID,
						Err:       err,
					})
					continue
				}
				if msg == nil {
					ev.Skipped++
					continue
				}
				ev.Messages = append(ev.Messages, msg)
			}
		}
	}
	return ev, nil
}

func convertMessage(wm wireMessage, contactName string) (InboundMessage, error) {
	if strings.TrimSpace(wm.ID) == "" {
		return nil, fmt.Errorf("message id is missing")
	}
	if strings.TrimSpace(wm.From) == "" {
		return nil, fmt.Errorf("sender is missing")
	}
	ts, err := parseUnixTimestamp(wm.Timestamp)
	if err != nil {
		return nil, err
	}
	meta := MessageMeta{ID: wm.ID, From: wm.From, Timestamp: ts, ContactName: contactName}

	switch wm.Type {
	case "text":
		if wm.Text == nil {
			return nil, fmt.Errorf("text message without text payload")
		}
		return &TextMessage{MessageMeta: meta, Body: wm.Text.Body}, nil

	case "interactive":
		if wm.Interactive == nil {
			return nil, fmt.Errorf("interactive message without interactive payload")
		}
		out := &InteractiveMessage{MessageMeta: meta, ReplyType: wm.Interactive.Type}
		switch {
		case wm.Interactive.ButtonReply != nil:
			out.ReplyID, out.ReplyTitle = wm.Interactive.ButtonReply.ID, wm.Interactive.ButtonReply.Title
		case wm.Interactive.ListReply != nil:
			out.ReplyID, out.ReplyTitle = wm.Interactive.ListReply.ID, wm.Interactive.ListReply.Title
		}
		return out, nil

	case "order":
		if wm.Order == nil {
			return nil, fmt.Errorf("order message without order payload")
		}
		out := &OrderMessage{MessageMeta: meta, CatalogID: wm.Order.CatalogID, Note: wm.Order.Text}
		for n, it := range wm.Order.ProductItems {
			if strings.TrimSpace(it.ProductRetailerID) == "" {
				return nil, fmt.Errorf("order item %d has no product_retailer_id", n)
			}
			if it.Quantity <= 0 {
				return nil, fmt.Errorf("order item %d has quantity %d", n, it.Quantity)
			}
			// Order prices are always major units; the catalog sniffing rules do not apply.
			price := decimal.Zero
			if it.ItemPrice.Set {
				p, ok := parseAmount(it.ItemPrice.Value)
				if !ok || p.IsNegative() {
					return nil, fmt.Errorf("order item %d has invalid item_price %q", n, it.ItemPrice.Value)
				}
				price = p
			}
			out.Items = append(out.Items, OrderItem{
				ProductRetailerID: it.ProductRetailerID,
				Quantity:          it.Quantity,
				ItemPrice:         price,
				Currency:          strings.ToUpper(strings.TrimSpace(it.Currency)),
			})
		}
		return out, nil

	default:
		return nil, nil
	}
}

func parseUnixTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return time.Unix(sec, 0).UTC(), nil
}
