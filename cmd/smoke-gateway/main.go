package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"adminpanel.org/internal/app"
	"adminpanel.org/internal/config"
	"adminpanel.org/internal/entity"
	"adminpanel.org/internal/gateway"
	"adminpanel.org/internal/ids"
	"adminpanel.org/internal/model"
)

func main() {
	log.SetFlags(0)
	cfg, err := config.LoadConsole()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	email := envOr("SMOKE_EMAIL", "admin@example.com")
	password := envOr("SMOKE_PASSWORD", "admin")

	client, err := gateway.New(cfg.GatewayURL, gateway.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		log.Fatalf("gateway client: %v", err)
	}
	a := app.New(cfg, client, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.Login(ctx, model.Credentials{Email: email, Password: password}); err != nil {
		log.Fatalf("login at %s: %v", cfg.GatewayURL, err)
	}

	code := "SMOKE" + ids.New()[20:]
	err = a.Coupons.Create(ctx, model.CouponInput{
		Code:             code,
		ShortDescription: "smoke test",
		DiscountType:     model.DiscountFlat,
		DiscountValue:    1,
	})
	if err != nil {
		log.Fatalf("create coupon: %v", err)
	}

	created, ok := findCoupon(ctx, a, code)
	if !ok {
		log.Fatalf("coupon %s missing after create", code)
	}

	if err := a.Coupons.Delete(ctx, created.ID); err != nil {
		log.Fatalf("delete coupon: %v", err)
	}
	if _, ok := findCoupon(ctx, a, code); ok {
		log.Fatalf("coupon %s still listed after delete", code)
	}

	fmt.Printf("✅ gateway smoke test passed: coupon=%s id=%s\n", code, created.ID)
}

func findCoupon(ctx context.Context, a *app.App, code string) (model.Coupon, bool) {
	if err := a.Coupons.LoadPage(ctx, 1, entity.Filters("code", code)); err != nil {
		log.Fatalf("list coupons: %v", err)
	}
	for _, c := range a.Coupons.Store().Items() {
		if c.Code == code {
			return c, true
		}
	}
	return model.Coupon{}, false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
