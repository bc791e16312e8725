// ABOUTME: Tagged union for association entries stored as bare ids or objects
// ABOUTME: Accepts both JSON shapes and round-trips whichever form was read
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RefKind tags how an association entry was stored.
type RefKind string

const (
	RefID     RefKind = "ref_id"
	RefObject RefKind = "ref_object"
)

// Ref is one entry in an association array. Upstream documents hold either a
// bare id string or an object snapshot such as {id, name, email}.
type Ref struct {
	Kind  RefKind
	ID    string
	Name  string
	Email string
}

// IDRef builds a bare-id reference.
func IDRef(id string) Ref {
	return Ref{Kind: RefID, ID: id}
}

// Key returns the canonical id used for matching.
func (r Ref) Key() string {
	return strings.TrimSpace(r.ID)
}

type refObject struct {
	ID          string `json:"id,omitempty"`
	UID         string `json:"uid,omitempty"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Kind == RefID {
		return json.Marshal(r.ID)
	}
	return json.Marshal(refObject{ID: r.ID, Name: r.Name, Email: r.Email})
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}

	switch data[0] {
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{Kind: RefID, ID: id}
		return nil
	case '{':
		var obj refObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		id := obj.ID
		if id == "" {
			id = obj.UID
		}
		name := obj.Name
		if name == "" {
			name = obj.DisplayName
		}
		*r = Ref{Kind: RefObject, ID: id, Name: name, Email: obj.Email}
		return nil
	default:
		return fmt.Errorf("association entry must be a string or object, got %s", string(data))
	}
}
