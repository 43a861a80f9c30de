package whatsapp

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

//
// ────────────────────────────────────────────────
//   Graph API: catalog products
// ────────────────────────────────────────────────
//

// ProductFields is the explicit field list requested on every catalog read.
const ProductFields = "id,retailer_id,name,description,price,currency,availability,condition," +
	"image_url,additional_image_urls,image_cdn_urls,images,brand,category,url"

// RawPrice holds a price exactly as upstream sent it. Graph usually sends a
// formatted string ("SGD999.00") but numbers and null also occur.
type RawPrice struct {
	Value string
	Set   bool
}

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (p *RawPrice) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = RawPrice{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = RawPrice{Value: s, Set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		// Objects, arrays and booleans are treated as absent.
		*p = RawPrice{}
		return nil
	}
	// Numbers are canonicalized, so 150.0 becomes "150" and is then read as
	// cents like any other integer. Only strings keep their written form.
	if d, err := decimal.NewFromString(n.String()); err == nil {
		*p = RawPrice{Value: d.String(), Set: true}
		return nil
	}
	*p = RawPrice{Value: n.String(), Set: true}
	return nil
}

// MarshalJSON writes the raw value back as a string.
func (p RawPrice) MarshalJSON() ([]byte, error) {
	if !p.Set {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// RawImage is one element of the generic images list.
type RawImage struct {
	URL string `json:"url"`
}

// URLList decodes either a JSON array of strings or a single string.
type URLList []string

func (l *URLList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = URLList{s}
		return nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		*l = nil
		return nil
	}
	*l = out
	return nil
}

// RawProduct is a catalog product as returned by the Graph API.
// Every field is optional; it only lives until normalization.
type RawProduct struct {
	ID                  string     `json:"id,omitempty"`
	RetailerID          string     `json:"retailer_id,omitempty"`
	Name                string     `json:"name,omitempty"`
	Description         string     `json:"description,omitempty"`
	Price               RawPrice   `json:"price"`
	Currency            string     `json:"currency,omitempty"`
	Availability        string     `json:"availability,omitempty"`
	Condition           string     `json:"condition,omitempty"`
	ImageURL            string     `json:"image_url,omitempty"`
	AdditionalImageURLs URLList    `json:"additional_image_urls,omitempty"`
	ImageCDNURLs        URLList    `json:"image_cdn_urls,omitempty"`
	Images              []RawImage `json:"images,omitempty"`
	Brand               string     `json:"brand,omitempty"`
	Category            string     `json:"category,omitempty"`
	URL                 string     `json:"url,omitempty"`
}

// ExternalID returns the retailer id when present, otherwise the Graph id.
func (r RawProduct) ExternalID() string {
	if id := strings.TrimSpace(r.RetailerID); id != "" {
		return id
	}
	return strings.TrimSpace(r.ID)
}

// ProductPage is one page of GET /{catalog_id}/products.
type ProductPage struct {
	Data   []RawProduct `json:"data"`
	Paging struct {
		Cursors struct {
			Before string `json:"before"`
			After  string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

// productWriteRequest is the body of product create and update calls.
// Pointers keep update requests sparse.
type productWriteRequest struct {
	RetailerID   string  `json:"retailer_id,omitempty"`
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	Price        *int64  `json:"price,omitempty"`
	Currency     *string `json:"currency,omitempty"`
	Availability *string `json:"availability,omitempty"`
	Condition    *string `json:"condition,omitempty"`
	ImageURL     *string `json:"image_url,omitempty"`
	URL          *string `json:"url,omitempty"`
}

type idResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// GraphErrorDetail is the "error" object of a Graph API failure body.
type GraphErrorDetail struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id,omitempty"`
}

type graphErrorBody struct {
	Error *GraphErrorDetail `json:"error"`
}

//
// ────────────────────────────────────────────────
//   Graph API: outbound messages
// ────────────────────────────────────────────────
//

type outboundMessage struct {
	MessagingProduct string              `json:"messaging_product"`
	RecipientType    string              `json:"recipient_type,omitempty"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textPayload        `json:"text,omitempty"`
	Template         *templatePayload    `json:"template,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
}

type textPayload struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type templatePayload struct {
	Name     string           `json:"name"`
	Language templateLanguage `json:"language"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type interactivePayload struct {
	Type   string            `json:"type"`
	Body   *interactiveText  `json:"body,omitempty"`
	Footer *interactiveText  `json:"footer,omitempty"`
	Action interactiveAction `json:"action"`
}

type interactiveText struct {
	Text string `json:"text"`
}

type interactiveAction struct {
	Name              string                  `json:"name,omitempty"`
	CatalogID         string                  `json:"catalog_id,omitempty"`
	ProductRetailerID string                  `json:"product_retailer_id,omitempty"`
	Parameters        *catalogActionParameter `json:"parameters,omitempty"`
}

type catalogActionParameter struct {
	ThumbnailProductRetailerID string `json:"thumbnail_product_retailer_id"`
}

// SendResult is the outcome of an accepted message send.
type SendResult struct {
	MessageID string          `json:"messageId"`
	WaID      string          `json:"waId,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

type sendMessageResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

//
// ────────────────────────────────────────────────
//   Webhook: inbound wire shapes
// ────────────────────────────────────────────────
//

type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string       `json:"field"`
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []wireMessage     `json:"messages"`
	Statuses []json.RawMessage `json:"statuses"`
}

type wireMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
	Order *struct {
		CatalogID    string `json:"catalog_id"`
		Text         string `json:"text"`
		ProductItems []struct {
			ProductRetailerID string   `json:"product_retailer_id"`
			Quantity          int      `json:"quantity"`
			ItemPrice         RawPrice `json:"item_price"`
			Currency          string   `json:"currency"`
		} `json:"product_items"`
	} `json:"order,omitempty"`
}
