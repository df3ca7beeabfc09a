package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"adminpanel.org/internal/gateway"
	"adminpanel.org/internal/model"
	"adminpanel.org/internal/permission"
)

const maxUpload = 32 << 20

func (a *API) registerResources() {
	users := &resource[model.User, model.UserInput]{
		api: a, ep: gateway.Users, module: permission.Users, data: a.users,
		build:  a.buildUser,
		status: func(u *model.User) *string { return &u.Status },
	}
	roles := &resource[model.Role, model.RoleInput]{
		api: a, ep: gateway.Roles, module: permission.Roles, data: a.roles,
		build:        a.buildRole,
		beforeDelete: a.roleInUse,
	}
	products := &resource[model.Product, model.ProductInput]{
		api: a, ep: gateway.Products, module: permission.Products, data: a.products,
		decode: decodeProduct,
		build:  a.buildProduct,
		status: func(p *model.Product) *string { return &p.Status },
	}
	categories := &resource[model.Category, model.CategoryInput]{
		api: a, ep: gateway.Categories, module: permission.Categories, data: a.categories,
		decode: decodeCategory,
		build:  a.buildCategory,
		status: func(c *model.Category) *string { return &c.Status },
	}
	coupons := &resource[model.Coupon, model.CouponInput]{
		api: a, ep: gateway.Coupons, module: permission.Coupons, data: a.coupons,
		build:  a.buildCoupon,
		status: func(c *model.Coupon) *string { return &c.Status },
	}
	orders := &resource[model.Order, model.OrderInput]{
		api: a, ep: gateway.Orders, module: permission.Orders, data: a.orders,
		build:  a.buildOrder,
		status: func(o *model.Order) *string { return &o.Status },
	}
	addresses := &resource[model.Address, model.AddressInput]{
		api: a, ep: gateway.Addresses, module: permission.Address, data: a.addresses,
		build: a.buildAddress,
	}
	features := &resource[model.Feature, model.FeatureInput]{
		api: a, ep: gateway.Features, module: permission.Features, data: a.features,
		build:  a.buildFeature,
		status: func(f *model.Feature) *string { return &f.Status },
	}

	users.routes(a.router)
	roles.routes(a.router)
	products.routes(a.router)
	categories.routes(a.router)
	coupons.routes(a.router)
	orders.routes(a.router)
	addresses.routes(a.router)
	features.routes(a.router)
}

func orActive(status string) string {
	if strings.TrimSpace(status) == "" {
		return statusActive
	}
	return status
}

func (a *API) buildUser(id string, in model.UserInput, prev *model.User) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if other, ok := a.userByEmail(email); ok && other.ID != id {
		return model.User{}, badRequest("email %s is already registered", email)
	}
	roleID := strings.TrimSpace(in.Role)
	if roleID == "" {
		roleID = a.viewerRoleID
	}
	if _, ok := a.roles.get(roleID); !ok {
		return model.User{}, badRequest("unknown role %q", roleID)
	}
	switch {
	case in.Password != "":
		hash, err := HashPassword(in.Password, a.bcryptCost)
		if err != nil {
			return model.User{}, err
		}
		a.setPassword(id, hash)
	case prev == nil:
		return model.User{}, badRequest("password is required")
	}
	return model.User{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Email:       email,
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Role:        roleID,
		Status:      orActive(in.Status),
	}, nil
}

func (a *API) userByEmail(email string) (model.User, bool) {
	matches := a.users.list(func(u model.User) bool { return strings.EqualFold(u.Email, email) })
	if len(matches) == 0 {
		return model.User{}, false
	}
	return matches[0], true
}

func (a *API) buildRole(id string, in model.RoleInput, _ *model.Role) (model.Role, error) {
	name := strings.TrimSpace(in.RoleName)
	for _, other := range a.roles.list(nil) {
		if other.ID != id && strings.EqualFold(other.RoleName, name) {
			return model.Role{}, badRequest("role %s already exists", name)
		}
	}
	set, err := permission.ParseSet(string(in.Permission))
	if err != nil {
		return model.Role{}, badRequest("invalid permission list")
	}
	for module := range set {
		if !permission.Known(module) {
			return model.Role{}, badRequest("unknown module %q", module)
		}
	}
	encoded, err := permission.Encode(set)
	if err != nil {
		return model.Role{}, err
	}
	return model.Role{ID: id, RoleName: name, Permission: encoded}, nil
}

func (a *API) roleInUse(id string) error {
	if id == a.adminRoleID {
		return badRequest("the administrator role cannot be deleted")
	}
	assigned := a.users.list(func(u model.User) bool { return u.Role == id })
	if len(assigned) > 0 {
		return badRequest("role is assigned to %d users", len(assigned))
	}
	return nil
}

func (a *API) buildProduct(id string, in model.ProductInput, prev *model.Product) (model.Product, error) {
	if !a.categoryExists(in.CategoryName) {
		return model.Product{}, badRequest("unknown category %q", in.CategoryName)
	}
	media := storedMedia("media", in.Media)
	if len(media) == 0 && prev != nil {
		media = prev.Media
	}
	return model.Product{
		ID:            id,
		Model:         strings.TrimSpace(in.Model),
		Type:          in.Type,
		Color:         in.Color,
		Storage:       in.Storage,
		Material:      in.Material,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		Quantity:      in.Quantity,
		BatteryHealth: in.BatteryHealth,
		ReleaseYear:   in.ReleaseYear,
		Features:      in.Features,
		Compatibility: in.Compatibility,
		Condition:     in.Condition,
		Warranty:      in.Warranty,
		AddOn:         in.AddOn,
		PurchaseDate:  in.PurchaseDate,
		Age:           in.Age,
		Repaired:      in.Repaired,
		CategoryName:  in.CategoryName,
		Status:        orActive(in.Status),
		Media:         media,
	}, nil
}

func (a *API) categoryExists(name string) bool {
	found := a.categories.list(func(c model.Category) bool {
		return c.Status != statusRemoved && strings.EqualFold(c.Name, name)
	})
	return len(found) > 0
}

func (a *API) buildCategory(id string, in model.CategoryInput, prev *model.Category) (model.Category, error) {
	name := strings.TrimSpace(in.Name)
	for _, other := range a.categories.list(nil) {
		if other.ID != id && strings.EqualFold(other.Name, name) {
			return model.Category{}, badRequest("category %s already exists", name)
		}
	}
	out := model.Category{
		ID:          id,
		Name:        name,
		Description: in.Description,
		Status:      orActive(in.Status),
	}
	if in.Image != nil {
		out.CategoryImage = storedMedia("categories", []model.File{*in.Image})[0]
	} else if prev != nil {
		out.CategoryImage = prev.CategoryImage
	}
	return out, nil
}

func (a *API) buildCoupon(id string, in model.CouponInput, _ *model.Coupon) (model.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	for _, other := range a.coupons.list(nil) {
		if other.ID != id && other.Code == code {
			return model.Coupon{}, badRequest("coupon %s already exists", code)
		}
	}
	if in.MaxRedemptions > 0 && in.CurrentRedemptions > in.MaxRedemptions {
		return model.Coupon{}, badRequest("current redemptions exceed the maximum")
	}
	return model.Coupon{
		ID:                 id,
		Code:               code,
		ShortDescription:   in.ShortDescription,
		LongDescription:    in.LongDescription,
		Applicable:         in.Applicable,
		DiscountType:       in.DiscountType,
		DiscountValue:      in.DiscountValue,
		MinimumPurchase:    in.MinimumPurchase,
		ExpiryDate:         in.ExpiryDate,
		MaxRedemptions:     in.MaxRedemptions,
		CurrentRedemptions: in.CurrentRedemptions,
		Status:             orActive(in.Status),
	}, nil
}

func (a *API) buildOrder(id string, in model.OrderInput, prev *model.Order) (model.Order, error) {
	out := model.Order{
		ID:            id,
		Status:        in.Status,
		TotalAmount:   in.TotalAmount,
		PaymentMethod: in.PaymentMethod,
		Items:         in.Items,
		UserID:        in.UserID,
		AddressID:     in.AddressID,
		CreatedOn:     a.now().UnixMilli(),
	}
	if prev != nil {
		out.CreatedOn = prev.CreatedOn
		if len(out.Items) == 0 {
			out.Items = prev.Items
		}
		if out.UserID == "" {
			out.UserID = prev.UserID
		}
		if out.AddressID == "" {
			out.AddressID = prev.AddressID
		}
	}
	if out.UserID != "" {
		if _, ok := a.users.get(out.UserID); !ok {
			return model.Order{}, badRequest("unknown user %q", out.UserID)
		}
	}
	return out, nil
}

func (a *API) buildAddress(id string, in model.AddressInput, _ *model.Address) (model.Address, error) {
	if _, ok := a.users.get(in.UserID); !ok {
		return model.Address{}, badRequest("unknown user %q", in.UserID)
	}
	return model.Address{
		ID:           id,
		UserID:       in.UserID,
		Name:         strings.TrimSpace(in.Name),
		PhoneNumber:  in.PhoneNumber,
		Email:        in.Email,
		AddressLine1: in.AddressLine1,
		Locality:     in.Locality,
		Landmark:     in.Landmark,
		Pincode:      in.Pincode,
		City:         in.City,
		State:        in.State,
	}, nil
}

func (a *API) buildFeature(id string, in model.FeatureInput, _ *model.Feature) (model.Feature, error) {
	return model.Feature{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Status:      orActive(in.Status),
		Description: in.Description,
	}, nil
}

// storedMedia names uploaded files the way the backend's object store would.
// File contents are discarded.
func storedMedia(dir string, files []model.File) []string {
	if len(files) == 0 {
		return nil
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, path.Join("uploads", dir, uuid.NewString()+"-"+path.Base(f.Name)))
	}
	return out
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func decodeProduct(r *http.Request) (model.ProductInput, error) {
	var in model.ProductInput
	if !isMultipart(r) {
		return in, decodeJSON(r, &in)
	}
	f, err := parseForm(r)
	if err != nil {
		return in, err
	}
	in = model.ProductInput{
		Model:         f.str("model"),
		Type:          f.str("type"),
		Color:         f.list("color"),
		Storage:       f.str("storage"),
		Material:      f.str("material"),
		Price:         f.float("price"),
		OriginalPrice: f.float("originalPrice"),
		Quantity:      f.int("quantity"),
		BatteryHealth: f.int("batteryHealth"),
		ReleaseYear:   f.int("releaseYear"),
		Features:      f.list("features"),
		Compatibility: f.list("compatibility"),
		Condition:     f.str("condition"),
		Warranty:      f.str("warranty"),
		AddOn:         f.list("addOn"),
		PurchaseDate:  f.int64("purchaseDate"),
		Age:           f.int("age"),
		Repaired:      f.list("repaired"),
		CategoryName:  f.str("categoryName"),
		Status:        f.str("status"),
		Media:         f.files("media"),
	}
	return in, f.err
}

func decodeCategory(r *http.Request) (model.CategoryInput, error) {
	var in model.CategoryInput
	if !isMultipart(r) {
		return in, decodeJSON(r, &in)
	}
	f, err := parseForm(r)
	if err != nil {
		return in, err
	}
	in = model.CategoryInput{
		Name:        f.str("name"),
		Description: f.str("description"),
		Status:      f.str("status"),
	}
	if files := f.files("categoryImage"); len(files) > 0 {
		in.Image = &files[0]
	}
	return in, f.err
}

// form reads typed multipart values, keeping the first conversion error.
type form struct {
	r      *http.Request
	values url.Values
	err    error
}

func parseForm(r *http.Request) (*form, error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return nil, badRequest("invalid multipart body")
	}
	return &form{r: r, values: r.MultipartForm.Value}, nil
}

func (f *form) str(key string) string { return strings.TrimSpace(f.values.Get(key)) }

func (f *form) list(key string) []string {
	var out []string
	for _, v := range f.values[key] {
		out = append(out, model.SplitList(v)...)
	}
	return out
}

func (f *form) float(key string) float64 {
	s := f.str(key)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	f.fail(key, err)
	return v
}

func (f *form) int(key string) int {
	return int(f.int64(key))
}

func (f *form) int64(key string) int64 {
	s := f.str(key)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	f.fail(key, err)
	return v
}

func (f *form) files(field string) []model.File {
	var out []model.File
	for _, fh := range f.r.MultipartForm.File[field] {
		out = append(out, model.File{Field: field, Name: fh.Filename})
	}
	return out
}

func (f *form) fail(key string, err error) {
	if err != nil && f.err == nil {
		f.err = badRequest("%s must be a number", key)
	}
}

var errSeed = errors.New("httpapi: seed failed")

// seed installs the two built-in roles, their users and the categories the
// demo catalogue uses. With demo set it also adds sample records.
func (a *API) seed(adminPassword, viewerPassword string, demo bool) error {
	all := permission.Set{}
	readOnly := permission.Set{}
	for _, m := range permission.Modules() {
		all[string(m)] = permission.All
		readOnly[string(m)] = permission.Tuple{Read: true}
	}
	admin, err := a.addRole("Administrator", all)
	if err != nil {
		return err
	}
	viewer, err := a.addRole("Viewer", readOnly)
	if err != nil {
		return err
	}
	a.adminRoleID, a.viewerRoleID = admin, viewer

	if err := a.addUser("Administrator", AdminEmail, adminPassword, admin); err != nil {
		return err
	}
	if err := a.addUser("Viewer", ViewerEmail, viewerPassword, viewer); err != nil {
		return err
	}
	for _, name := range []string{"Phones", "Laptops", "Accessories"} {
		id := uuid.NewString()
		a.categories.put(id, model.Category{ID: id, Name: name, Status: statusActive})
	}
	if demo {
		a.seedDemo()
	}
	return nil
}

func (a *API) addRole(name string, set permission.Set) (string, error) {
	encoded, err := permission.Encode(set)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errSeed, err)
	}
	id := uuid.NewString()
	a.roles.put(id, model.Role{ID: id, RoleName: name, Permission: encoded})
	return id, nil
}

func (a *API) addUser(name, email, password, roleID string) error {
	hash, err := HashPassword(password, a.bcryptCost)
	if err != nil {
		return fmt.Errorf("%w: %v", errSeed, err)
	}
	id := uuid.NewString()
	a.users.put(id, model.User{
		ID: id, Name: name, Email: email, PhoneNumber: "9999999999",
		Role: roleID, Status: statusActive,
	})
	a.setPassword(id, hash)
	return nil
}

func (a *API) seedDemo() {
	for i, m := range []string{"iPhone 13", "iPhone 14 Pro", "Pixel 8", "Galaxy S23", "OnePlus 11"} {
		id := uuid.NewString()
		a.products.put(id, model.Product{
			ID: id, Model: m, Type: "smartphone", Storage: "128GB",
			Price: float64(30000 + i*5000), OriginalPrice: float64(40000 + i*5000),
			Quantity: 3 + i, BatteryHealth: 90, Condition: "refurbished",
			CategoryName: "Phones", Status: statusActive,
		})
	}
	id := uuid.NewString()
	a.coupons.put(id, model.Coupon{
		ID: id, Code: "WELCOME10", ShortDescription: "10% off the first order",
		DiscountType: model.DiscountPercentage, DiscountValue: 10, MaxRedemptions: 100,
		Status: statusActive,
	})
	id = uuid.NewString()
	a.features.put(id, model.Feature{
		ID: id, Name: "Certified refurbished", Status: statusActive,
		Description: []model.FeatureGroup{{Category: "Checks", Features: []string{"Battery", "Display", "Cameras"}}},
	})
}
