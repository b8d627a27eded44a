package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// OwnerKind enumerates the entities an address can belong to.
type OwnerKind string

const (
	OwnerMember       OwnerKind = "member"
	OwnerEvent        OwnerKind = "event"
	OwnerOrganization OwnerKind = "organization"
)

func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerMember, OwnerEvent, OwnerOrganization:
		return true
	}
	return false
}

// AddressOwner identifies the owner of an address. Build it with
// MemberOwner, EventOwner or OrganizationOwner.
type AddressOwner struct {
	Kind OwnerKind
	ID   string
}

func MemberOwner(id string) AddressOwner       { return AddressOwner{Kind: OwnerMember, ID: id} }
func EventOwner(id string) AddressOwner        { return AddressOwner{Kind: OwnerEvent, ID: id} }
func OrganizationOwner(id string) AddressOwner { return AddressOwner{Kind: OwnerOrganization, ID: id} }

func (o AddressOwner) Validate() error {
	if !o.Kind.Valid() {
		return fmt.Errorf("unknown address owner kind %q", o.Kind)
	}
	if o.ID == "" {
		return fmt.Errorf("address owner id is required")
	}
	return nil
}

func (o AddressOwner) String() string {
	return string(o.Kind) + ":" + o.ID
}

// Address is a postal location attached to a member, an event or an organization.
type Address struct {
	bun.BaseModel `bun:"table:addresses,alias:a"`

	ID              string    `bun:"id,pk" json:"id"`
	AddressableType OwnerKind `bun:"addressable_type,notnull" json:"addressableType"`
	AddressableID   string    `bun:"addressable_id,notnull" json:"addressableId"`

	Street     *string  `bun:"street" json:"street"`
	City       *string  `bun:"city" json:"city"`
	PostalCode *string  `bun:"postal_code" json:"postalCode"`
	Country    string   `bun:"country,notnull,default:'France'" json:"country"`
	Latitude   *float64 `bun:"latitude" json:"latitude"`
	Longitude  *float64 `bun:"longitude" json:"longitude"`
	Label      *string  `bun:"label" json:"label"`
	IsDefault  bool     `bun:"is_default,notnull,default:false" json:"isDefault"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

func (a *Address) Owner() AddressOwner {
	return AddressOwner{Kind: a.AddressableType, ID: a.AddressableID}
}

func (a *Address) SetOwner(o AddressOwner) {
	a.AddressableType = o.Kind
	a.AddressableID = o.ID
}
