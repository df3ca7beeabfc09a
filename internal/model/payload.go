package model

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// States lists the states and union territories an address may name.
var States = []string{
	"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh",
	"Goa", "Gujarat", "Haryana", "Himachal Pradesh", "Jharkhand", "Karnataka",
	"Kerala", "Madhya Pradesh", "Maharashtra", "Manipur", "Meghalaya",
	"Mizoram", "Nagaland", "Odisha", "Punjab", "Rajasthan", "Sikkim",
	"Tamil Nadu", "Telangana", "Tripura", "Uttar Pradesh", "Uttarakhand",
	"West Bengal", "Andaman and Nicobar Islands", "Chandigarh",
	"Dadra and Nagar Haveli and Daman and Diu", "Delhi", "Jammu and Kashmir",
	"Ladakh", "Lakshadweep", "Puducherry",
}

// Payload is any mutation body. Validate runs before the gateway call.
type Payload interface {
	Validate() error
}

// File is a binary attachment sent as a multipart part.
type File struct {
	Field string
	Name  string
	Data  []byte
}

// FormField is one multipart text value. Repeated names encode lists.
type FormField struct {
	Name  string
	Value string
}

// Multipart is implemented by payloads that carry media and must be sent as
// multipart/form-data instead of JSON.
type Multipart interface {
	Payload
	FormFields() []FormField
	Files() []File
}

type UserInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password,omitempty"`
	Role        string `json:"role"`
	Status      string `json:"status"`
}

func (in UserInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name is required")
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return invalid("email is required")
	}
	if !emailPattern.MatchString(email) {
		return invalid("invalid email format")
	}
	phone := strings.TrimSpace(in.PhoneNumber)
	if phone == "" {
		return invalid("phone number is required")
	}
	if !phonePattern.MatchString(phone) {
		return invalid("phone number must be 10 digits")
	}
	return nil
}

type RoleInput struct {
	RoleName   string        `json:"roleName"`
	Permission RawPermission `json:"permission,omitempty"`
}

func (in RoleInput) Validate() error {
	if strings.TrimSpace(in.RoleName) == "" {
		return invalid("role name is required")
	}
	return nil
}

type ProductInput struct {
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
	Media         []File   `json:"-"`
}

func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Model) == "" {
		return invalid("model is required")
	}
	if strings.TrimSpace(in.CategoryName) == "" {
		return invalid("category is required")
	}
	if in.Price < 0 || in.OriginalPrice < 0 {
		return invalid("prices must not be negative")
	}
	if in.Quantity < 0 {
		return invalid("quantity must not be negative")
	}
	if in.BatteryHealth < 0 || in.BatteryHealth > 100 {
		return invalid("battery health must be between 0 and 100")
	}
	return nil
}

func (in ProductInput) FormFields() []FormField {
	fields := []FormField{
		{"model", in.Model},
		{"type", in.Type},
		{"storage", in.Storage},
		{"material", in.Material},
		{"price", formatFloat(in.Price)},
		{"originalPrice", formatFloat(in.OriginalPrice)},
		{"quantity", strconv.Itoa(in.Quantity)},
		{"batteryHealth", strconv.Itoa(in.BatteryHealth)},
		{"releaseYear", strconv.Itoa(in.ReleaseYear)},
		{"condition", in.Condition},
		{"warranty", in.Warranty},
		{"purchaseDate", strconv.FormatInt(in.PurchaseDate, 10)},
		{"age", strconv.Itoa(in.Age)},
		{"categoryName", in.CategoryName},
		{"status", in.Status},
	}
	fields = appendList(fields, "color", in.Color)
	fields = appendList(fields, "features", in.Features)
	fields = appendList(fields, "compatibility", in.Compatibility)
	fields = appendList(fields, "addOn", in.AddOn)
	fields = appendList(fields, "repaired", in.Repaired)
	return fields
}

func (in ProductInput) Files() []File {
	out := make([]File, 0, len(in.Media))
	for _, f := range in.Media {
		if f.Field == "" {
			f.Field = "media"
		}
		out = append(out, f)
	}
	return out
}

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Image       *File  `json:"-"`
}

func (in CategoryInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("category name is required")
	}
	return nil
}

func (in CategoryInput) FormFields() []FormField {
	return []FormField{
		{"name", in.Name},
		{"description", in.Description},
		{"status", in.Status},
	}
}

func (in CategoryInput) Files() []File {
	if in.Image == nil {
		return nil
	}
	f := *in.Image
	if f.Field == "" {
		f.Field = "categoryImage"
	}
	return []File{f}
}

const (
	DiscountFlat       = "flat"
	DiscountPercentage = "percentage"
)

type CouponInput struct {
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

func (in CouponInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return invalid("coupon code is required")
	}
	switch in.DiscountType {
	case DiscountFlat:
	case DiscountPercentage:
		if in.DiscountValue > 100 {
			return invalid("percentage discount must not exceed 100")
		}
	default:
		return invalid("unsupported discount type %q", in.DiscountType)
	}
	if in.DiscountValue <= 0 {
		return invalid("discount value must be positive")
	}
	if in.MinimumPurchase < 0 {
		return invalid("minimum purchase must not be negative")
	}
	if in.MaxRedemptions < 0 || in.CurrentRedemptions < 0 {
		return invalid("redemption counts must not be negative")
	}
	return nil
}

type OrderInput struct {
	Status        string      `json:"status"`
	PaymentMethod string      `json:"paymentMethod"`
	TotalAmount   float64     `json:"totalAmount"`
	Items         []OrderItem `json:"items,omitempty"`
	UserID        string      `json:"userId,omitempty"`
	AddressID     string      `json:"addressId,omitempty"`
}

func (in OrderInput) Validate() error {
	if strings.TrimSpace(in.Status) == "" {
		return invalid("order status is required")
	}
	if in.TotalAmount < 0 {
		return invalid("total amount must not be negative")
	}
	return nil
}

type AddressInput struct {
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

func (in AddressInput) Validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return invalid("user is required")
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.AddressLine1) == "" {
		return invalid("name and address line are required")
	}
	if in.Email != "" && !emailPattern.MatchString(in.Email) {
		return invalid("invalid email format")
	}
	if !phonePattern.MatchString(in.PhoneNumber) {
		return invalid("phone number must be 10 digits")
	}
	if !pincodePattern.MatchString(in.Pincode) {
		return invalid("pincode must be 6 digits")
	}
	if !slices.Contains(States, in.State) {
		return invalid("unknown state %q", in.State)
	}
	return nil
}

type FeatureInput struct {
	Name        string         `json:"name"`
	Status      string         `json:"status"`
	Description []FeatureGroup `json:"description"`
}

func (in FeatureInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("feature name is required")
	}
	for i, group := range in.Description {
		if strings.TrimSpace(group.Category) == "" {
			return invalid("description group %d has no category", i+1)
		}
	}
	return nil
}

func appendList(fields []FormField, name string, values []string) []FormField {
	for _, v := range values {
		fields = append(fields, FormField{Name: name, Value: v})
	}
	return fields
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
