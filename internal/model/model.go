// Package model holds the typed records the gateway returns and the payloads
// the console sends for each mutation.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput reports a payload rejected before it reaches the gateway.
var ErrInvalidInput = errors.New("model: invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// RawPermission holds the role permission list as it travels on the wire. The
// gateway stores it as a JSON-encoded string; some records embed the array
// directly. Both decode into the same raw bytes of the list.
type RawPermission string

// UnmarshalJSON accepts either a JSON string or an embedded JSON value.
func (p *RawPermission) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*p = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = RawPermission(s)
		return nil
	}
	*p = RawPermission(trimmed)
	return nil
}

// MarshalJSON always writes the string form the gateway stores.
func (p RawPermission) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// RoleAttribute is the role embedded in a user profile at login time.
type RoleAttribute struct {
	ID         string        `json:"_id,omitempty"`
	RoleName   string        `json:"roleName"`
	Permission RawPermission `json:"permission"`
}

type User struct {
	ID            string         `json:"_id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	PhoneNumber   string         `json:"phoneNumber"`
	Role          string         `json:"role"`
	Status        string         `json:"status"`
	RoleAttribute *RoleAttribute `json:"roleAttribute,omitempty"`
}

type Role struct {
	ID         string        `json:"_id"`
	RoleName   string        `json:"roleName"`
	Permission RawPermission `json:"permission"`
}

type Product struct {
	ID            string   `json:"_id"`
	Model         string   `json:"model"`
	Type          string   `json:"type"`
	Color         []string `json:"color"`
	Storage       string   `json:"storage"`
	Material      string   `json:"material"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"originalPrice"`
	Quantity      int      `json:"quantity"`
	BatteryHealth int      `json:"batteryHealth"`
	ReleaseYear   int      `json:"releaseYear"`
	Features      []string `json:"features"`
	Compatibility []string `json:"compatibility"`
	Condition     string   `json:"condition"`
	Warranty      string   `json:"warranty"`
	AddOn         []string `json:"addOn"`
	PurchaseDate  int64    `json:"purchaseDate"`
	Age           int      `json:"age"`
	Repaired      []string `json:"repaired"`
	CategoryName  string   `json:"categoryName"`
	Status        string   `json:"status"`
	Media         []string `json:"media,omitempty"`
}

type Category struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	CategoryImage string `json:"categoryImage,omitempty"`
}

type Coupon struct {
	ID                 string   `json:"_id"`
	Code               string   `json:"code"`
	ShortDescription   string   `json:"shortDescription"`
	LongDescription    string   `json:"longDescription"`
	Applicable         []string `json:"applicable"`
	DiscountType       string   `json:"discountType"`
	DiscountValue      float64  `json:"discountValue"`
	MinimumPurchase    float64  `json:"minimumPurchase"`
	ExpiryDate         int64    `json:"expiryDate"`
	MaxRedemptions     int      `json:"maxRedemptions"`
	CurrentRedemptions int      `json:"currentRedemptions"`
	Status             string   `json:"status"`
}

type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Order struct {
	ID            string      `json:"_id"`
	CreatedOn     int64       `json:"createdOn"`
	Status        string      `json:"status"`
	TotalAmount   float64     `json:"totalAmount"`
	PaymentMethod string      `json:"paymentMethod"`
	Items         []OrderItem `json:"items"`
	UserID        string      `json:"userId"`
	AddressID     string      `json:"addressId,omitempty"`
}

type Address struct {
	ID           string `json:"_id"`
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	PhoneNumber  string `json:"phoneNumber"`
	Email        string `json:"email"`
	AddressLine1 string `json:"addressLine1"`
	Locality     string `json:"locality"`
	Landmark     string `json:"landmark"`
	Pincode      string `json:"pincode"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// FeatureGroup is one titled bullet list inside a feature description.
type FeatureGroup struct {
	Category string   `json:"category"`
	Features []string `json:"features"`
}

type Feature struct {
	ID          string         `json:"_id"`
	Name        string         `json:"name"`
	Status      string         `json:"status"`
	Description []FeatureGroup `json:"description"`
}

// Activity is one line of the dashboard's recent activity feed.
type Activity struct {
	Message string `json:"message"`
	At      int64  `json:"at"`
}

// Dashboard is the aggregate returned by dashboard/getData.
type Dashboard struct {
	TotalUsers    int        `json:"totalUsers"`
	TotalOrders   int        `json:"totalOrders"`
	TotalProducts int        `json:"totalProducts"`
	TotalRevenue  float64    `json:"totalRevenue"`
	Recent        []Activity `json:"recent"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks both fields are present.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return invalid("email and password are required")
	}
	return nil
}

// SplitList turns comma separated CLI input into a trimmed slice, dropping
// empty entries.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
