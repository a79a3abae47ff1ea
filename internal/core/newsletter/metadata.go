package newsletter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/hay-kot/chanfeed/internal/core/binnode"
)

var (
	// ErrResultMissing is returned when a managed query response has no
	// result payload.
	ErrResultMissing = errors.New("result node missing")
	// ErrDataMissing is returned when the expected key is absent from the
	// response data map.
	ErrDataMissing = errors.New("response data missing")
)

// MetadataShape selects which response document carries the metadata.
type MetadataShape int

const (
	// ShapeFetch is the response to a metadata query.
	ShapeFetch MetadataShape = iota
	// ShapeCreate is the response to a create query.
	ShapeCreate
)

// DataKey is the key of the data map holding the metadata for this shape.
func (s MetadataShape) DataKey() string {
	if s == ShapeCreate {
		return PathCreate
	}
	return PathNewsletter
}

func (s MetadataShape) String() string {
	if s == ShapeCreate {
		return "create"
	}
	return "fetch"
}

// ViewerMetadata is the requesting account's relationship to a channel.
// Fields the server sends beyond the typed ones are kept in Extra and written
// back unchanged.
type ViewerMetadata struct {
	Mute         string
	Role         string
	IsSubscribed bool
	Extra        map[string]json.RawMessage
}

func (v *ViewerMetadata) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*v = ViewerMetadata{}
	take := func(key string, dst any) {
		raw, ok := fields[key]
		if !ok {
			return
		}
		// values of an unexpected type stay in Extra
		if json.Unmarshal(raw, dst) == nil {
			delete(fields, key)
		}
	}
	take("mute", &v.Mute)
	take("role", &v.Role)
	take("is_subscribed", &v.IsSubscribed)

	if len(fields) > 0 {
		v.Extra = fields
	}
	return nil
}

func (v ViewerMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(v.Extra)+3)
	for k, raw := range v.Extra {
		out[k] = raw
	}
	if v.Mute != "" {
		out["mute"] = v.Mute
	}
	if v.Role != "" {
		out["role"] = v.Role
	}
	if v.IsSubscribed {
		out["is_subscribed"] = true
	}
	return json.Marshal(out)
}

// Metadata is a flat snapshot of a channel's descriptive state.
type Metadata struct {
	ID              string          `json:"id"`
	State           string          `json:"state"`
	CreationTime    int64           `json:"creation_time"`
	Name            string          `json:"name"`
	NameTime        int64           `json:"name_time"`
	Description     string          `json:"description"`
	DescriptionTime int64           `json:"description_time"`
	Invite          string          `json:"invite"`
	Handle          string          `json:"handle,omitempty"`
	Picture         *string         `json:"picture"`
	Preview         *string         `json:"preview"`
	ReactionCodes   string          `json:"reaction_codes"`
	Subscribers     int64           `json:"subscribers"`
	Verification    string          `json:"verification"`
	Viewer          *ViewerMetadata `json:"viewer_metadata"`
}

// flexInt accepts a JSON number or a numeric string. Empty strings and null
// decode to zero.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		data = []byte(s)
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %q", data)
	}
	*f = flexInt(n)
	return nil
}

type textField struct {
	Text       string  `json:"text"`
	UpdateTime flexInt `json:"update_time"`
}

type imageField struct {
	DirectPath string `json:"direct_path"`
}

type rawMetadata struct {
	ID    string `json:"id"`
	State *struct {
		Type string `json:"type"`
	} `json:"state"`
	ThreadMetadata *struct {
		CreationTime     flexInt     `json:"creation_time"`
		Name             textField   `json:"name"`
		Description      textField   `json:"description"`
		Invite           string      `json:"invite"`
		Handle           string      `json:"handle"`
		Picture          *imageField `json:"picture"`
		Preview          *imageField `json:"preview"`
		SubscribersCount flexInt     `json:"subscribers_count"`
		Verification     string      `json:"verification"`
		Settings         struct {
			ReactionCodes struct {
				Value string `json:"value"`
			} `json:"reaction_codes"`
		} `json:"settings"`
	} `json:"thread_metadata"`
	ViewerMetadata *ViewerMetadata `json:"viewer_metadata"`
}

// ExtractMetadata maps a managed query response onto a Metadata record.
func ExtractMetadata(node *binnode.Node, shape MetadataShape) (*Metadata, error) {
	raw, err := resultData(node, shape.DataKey())
	if err != nil {
		return nil, fmt.Errorf("extract %s metadata: %w", shape, err)
	}

	var doc rawMetadata
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("extract %s metadata: decode %s: %w", shape, shape.DataKey(), err)
	}
	if doc.ThreadMetadata == nil {
		return nil, fmt.Errorf("extract %s metadata: thread_metadata: %w", shape, ErrDataMissing)
	}

	tm := doc.ThreadMetadata
	md := &Metadata{
		ID:              doc.ID,
		CreationTime:    int64(tm.CreationTime),
		Name:            tm.Name.Text,
		NameTime:        int64(tm.Name.UpdateTime),
		Description:     tm.Description.Text,
		DescriptionTime: int64(tm.Description.UpdateTime),
		Invite:          tm.Invite,
		Handle:          tm.Handle,
		Picture:         directPath(tm.Picture),
		Preview:         directPath(tm.Preview),
		ReactionCodes:   tm.Settings.ReactionCodes.Value,
		Subscribers:     int64(tm.SubscribersCount),
		Verification:    tm.Verification,
		Viewer:          doc.ViewerMetadata,
	}
	if doc.State != nil {
		md.State = doc.State.Type
	}

	return md, nil
}

func directPath(img *imageField) *string {
	if img == nil || img.DirectPath == "" {
		return nil
	}
	p := img.DirectPath
	return &p
}

type mexResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// resultData returns data[key] from the JSON carried by the result child.
func resultData(node *binnode.Node, key string) (json.RawMessage, error) {
	payload := binnode.Child(node, "result").Bytes()
	if len(payload) == 0 {
		return nil, ErrResultMissing
	}

	var resp mexResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	raw, ok := resp.Data[key]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		if len(resp.Errors) > 0 && resp.Errors[0].Message != "" {
			return nil, fmt.Errorf("%s: %w: %s", key, ErrDataMissing, resp.Errors[0].Message)
		}
		return nil, fmt.Errorf("%s: %w", key, ErrDataMissing)
	}

	return raw, nil
}
