package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/taxproof-coupons/internal/domain/auth"
	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
	"github.com/xenking/taxproof-coupons/internal/domain/product"
	"github.com/xenking/taxproof-coupons/internal/storage/postgres"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	TaxClass string          `json:"taxClass"`
	Image    struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

// defaultProducts is used when no products file is given. Prices are net.
var defaultProducts = []product.Product{
	{ID: "1", Name: "Waffle with Berries", Price: decimal.RequireFromString("6.50"), Category: "Waffle", TaxClass: "reduced"},
	{ID: "2", Name: "Vanilla Bean Crème Brûlée", Price: decimal.RequireFromString("7.00"), Category: "Crème Brûlée", TaxClass: "reduced"},
	{ID: "3", Name: "Macaron Mix of Five", Price: decimal.RequireFromString("8.00"), Category: "Macaron", TaxClass: "reduced"},
	{ID: "4", Name: "Gift Box", Price: decimal.RequireFromString("100.00"), Category: "Gifts", TaxClass: "standard"},
	{ID: "5", Name: "Espresso Machine", Price: decimal.RequireFromString("249.00"), Category: "Equipment", TaxClass: "standard"},
}

var seedCoupons = []coupon.Rule{
	{
		Code:          "GROSS50",
		DiscountType:  coupon.DiscountFixedCart,
		Amount:        decimal.NewFromInt(50),
		ApplyAfterTax: true,
		Description:   "50 off the order total, tax included",
	},
	{
		Code:         "NET10",
		DiscountType: coupon.DiscountFixedCart,
		Amount:       decimal.NewFromInt(10),
		Description:  "10 off the order subtotal before tax",
	},
	{
		Code:         "HAPPYHOURS",
		DiscountType: coupon.DiscountPercent,
		Amount:       decimal.NewFromInt(18),
		Description:  "Happy Hours: 18% off entire order",
	},
	{
		Code:         "TWOOFF",
		DiscountType: coupon.DiscountFixedProduct,
		Amount:       decimal.NewFromInt(2),
		MinItems:     2,
		Description:  "2 off every item when buying two or more",
	},
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file (built-in catalog when empty)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or TAXPROOF_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or TAXPROOF_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("TAXPROOF_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or TAXPROOF_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("TAXPROOF_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products, err := loadProducts(productsFile)
	if err != nil {
		return errors.Wrap(err, "load products")
	}
	if err := seedProducts(ctx, postgres.NewProductRepository(pool), products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := upsertCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func loadProducts(path string) ([]product.Product, error) {
	if path == "" {
		return defaultProducts, nil
	}

	slog.Info("reading products file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read products file")
	}

	var raw []productJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	products := make([]product.Product, 0, len(raw))
	for _, p := range raw {
		products = append(products, product.Product{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Category: p.Category,
			TaxClass: p.TaxClass,
			Image: product.Image{
				Thumbnail: p.Image.Thumbnail,
				Mobile:    p.Image.Mobile,
				Tablet:    p.Image.Tablet,
				Desktop:   p.Image.Desktop,
			},
		})
	}
	return products, nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, products []product.Product) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return err
		}

		slog.Info("upserted product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.String("tax_class", p.TaxClass),
		)
	}

	return nil
}

func upsertCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding sample coupons", slog.Int("count", len(seedCoupons)))

	if err := repo.Upsert(ctx, seedCoupons...); err != nil {
		return err
	}

	for _, c := range seedCoupons {
		slog.Info("upserted coupon",
			slog.String("code", c.Code),
			slog.String("type", string(c.DiscountType)),
			slog.Bool("apply_after_tax", c.ApplyAfterTax),
		)
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	info := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HexHash([]byte(pepper), apiKey),
		Name:    "Default key",
		Scopes:  []string{auth.ScopeOrders, auth.ScopeAdmin},
	}
	if err := repo.Upsert(ctx, info); err != nil {
		return err
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.Any("scopes", info.Scopes))

	return nil
}
