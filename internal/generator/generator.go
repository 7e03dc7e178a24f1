// Package generator synthesizes the referentially consistent ODS dataset
// from a business-scale configuration.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"dw-pipeline/internal/models"
	"dw-pipeline/internal/scale"
	"dw-pipeline/internal/storeconfig"
	"dw-pipeline/internal/util"

	"go.uber.org/zap"
)

// ProgressFunc receives free-text progress lines as generation advances.
type ProgressFunc func(msg string)

// Generator synthesizes datasets. Safe for reuse; each Generate call owns
// its own rand source.
type Generator struct {
	logger   *zap.Logger
	progress ProgressFunc
}

// New creates a generator. progress may be nil.
func New(progress ProgressFunc) *Generator {
	return &Generator{
		logger:   util.GetLogger(),
		progress: progress,
	}
}

func (g *Generator) emit(format string, args ...interface{}) {
	if g.progress != nil {
		g.progress(fmt.Sprintf(format, args...))
	}
}

// Generate synthesizes the eight ODS tables for the request. Any structural
// inconsistency in the produced row set is a generation bug and fails the
// run with an InvariantViolation; rows are never clamped into shape.
func (g *Generator) Generate(ctx context.Context, req *Request) (*Dataset, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	now := time.Now()

	est, err := scale.EstimateVolume(req.BusinessScale, req.PlatformStores.TotalStores(), req.TimeSpanDays)
	if err != nil {
		return nil, err
	}

	category := Categories[req.MainCategory]
	g.logger.Info("Starting dataset generation",
		zap.String("scale", req.BusinessScale),
		zap.Int("stores", est.StoreCount),
		zap.Int("days", req.TimeSpanDays),
		zap.String("category", category.Name))
	g.emit("generation started: scale=%s stores=%d days=%d category=%s",
		req.BusinessScale, est.StoreCount, req.TimeSpanDays, category.Name)

	ds := &Dataset{}

	ds.Stores = g.buildStores(rng, now, req.PlatformStores)
	g.emit("stores: %d rows", len(ds.Stores))

	ds.Products = g.buildProducts(rng, ds.Stores, category)
	g.emit("products: %d rows", len(ds.Products))

	ds.Users = g.buildUsers(rng, now, int(est.EstimatedUsers), req.TimeSpanDays)
	g.emit("users: %d rows", len(ds.Users))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := req.TargetOrders
	if target <= 0 {
		target = int(est.EstimatedOrders)
	}
	ds.Orders, ds.OrderDetails = g.buildOrders(rng, now, ds, target, req.TimeSpanDays)
	g.emit("orders: %d rows, order details: %d rows", len(ds.Orders), len(ds.OrderDetails))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds.Promotions = g.buildPromotions(rng, now, ds, req.TimeSpanDays)
	g.emit("promotions: %d rows", len(ds.Promotions))

	ds.Traffic = g.buildTraffic(rng, now, ds.Stores, req.TimeSpanDays)
	g.emit("traffic: %d rows", len(ds.Traffic))

	ds.Inventory = g.buildInventory(rng, now, ds.Products, req.TimeSpanDays)
	g.emit("inventory movements: %d rows", len(ds.Inventory))

	if err := Validate(ds); err != nil {
		return nil, err
	}
	g.emit("generation finished: all referential invariants hold")
	util.RowsGeneratedTotal.Add(float64(len(ds.Orders) + len(ds.OrderDetails)))

	return ds, nil
}

func (g *Generator) buildStores(rng *rand.Rand, now time.Time, cfg storeconfig.Config) []models.Store {
	platforms := make([]string, 0, len(cfg))
	for p := range cfg {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	var stores []models.Store
	id := 1
	for _, platform := range platforms {
		for _, name := range cfg[platform] {
			// Open date uniform across a one-to-three-year lookback.
			daysAgo := 365 + rng.Intn(2*365)
			stores = append(stores, models.Store{
				ID:       fmt.Sprintf("S%04d", id),
				Name:     fmt.Sprintf("【%s】%s", platform, name),
				Platform: platform,
				OpenDate: now.AddDate(0, 0, -daysAgo).Truncate(24 * time.Hour),
			})
			id++
		}
	}
	return stores
}

func (g *Generator) buildProducts(rng *rand.Rand, stores []models.Store, category Category) []models.Product {
	l1s := make([]string, 0, len(category.Subcats))
	for l1 := range category.Subcats {
		l1s = append(l1s, l1)
	}
	sort.Strings(l1s)

	var products []models.Product
	id := 1
	for _, store := range stores {
		for _, l1 := range l1s {
			pr := category.PriceRanges[l1]
			for _, l2 := range category.Subcats[l1] {
				for i := 1; i <= 2; i++ {
					price := pr.Min + rng.Int63n(pr.Max-pr.Min+1)
					// Margin 20-50% keeps cost strictly below price.
					margin := 0.20 + rng.Float64()*0.30
					cost := int64(float64(price) * (1 - margin))
					products = append(products, models.Product{
						ID:         fmt.Sprintf("P%08d", id),
						StoreID:    store.ID,
						Platform:   store.Platform,
						Name:       fmt.Sprintf("%s%d号", l2, i),
						CategoryL1: l1,
						CategoryL2: l2,
						Price:      price,
						Cost:       cost,
						Stock:      50 + rng.Intn(251),
						CreatedAt:  store.OpenDate,
					})
					id++
				}
			}
		}
	}
	return products
}

func (g *Generator) buildUsers(rng *rand.Rand, now time.Time, count, timeSpanDays int) []models.User {
	// Registration precedes the order window: from six months before the
	// span down to its first quarter.
	regStart := timeSpanDays + 180
	regEnd := timeSpanDays / 4
	if regEnd < 1 {
		regEnd = 1
	}

	users := make([]models.User, 0, count)
	for i := 1; i <= count; i++ {
		gender := genders[0]
		switch r := rng.Float64(); {
		case r < 0.48:
			gender = genders[0]
		case r < 0.96:
			gender = genders[1]
		default:
			gender = genders[2]
		}
		daysAgo := regEnd + rng.Intn(regStart-regEnd+1)
		users = append(users, models.User{
			ID:           fmt.Sprintf("U%08d", i),
			Name:         fmt.Sprintf("用户%d", i),
			Gender:       gender,
			Age:          18 + rng.Intn(48),
			City:         cities[rng.Intn(len(cities))],
			RegisterDate: now.AddDate(0, 0, -daysAgo).Truncate(24 * time.Hour),
		})
	}
	return users
}

func (g *Generator) buildOrders(rng *rand.Rand, now time.Time, ds *Dataset, target, timeSpanDays int) ([]models.Order, []models.OrderDetail) {
	byStore := make(map[string][]models.Product)
	for _, p := range ds.Products {
		byStore[p.StoreID] = append(byStore[p.StoreID], p)
	}

	// Approximate generation target with bounded ±10% variance.
	total := target + int(float64(target)*(rng.Float64()*0.2-0.1))
	if total < 1 {
		total = 1
	}

	orders := make([]models.Order, 0, total)
	details := make([]models.OrderDetail, 0, total*2)
	detailID := 1

	for i := 1; i <= total; i++ {
		store := ds.Stores[rng.Intn(len(ds.Stores))]
		user := ds.Users[rng.Intn(len(ds.Users))]
		catalog := byStore[store.ID]
		if len(catalog) == 0 {
			continue
		}

		day := rng.Intn(timeSpanDays)
		orderTime := now.AddDate(0, 0, -day).
			Truncate(24 * time.Hour).
			Add(time.Duration(rng.Intn(24*3600)) * time.Second)

		status := models.OrderStatusCompleted
		switch r := rng.Float64(); {
		case r < 0.92:
		case r < 0.98:
			status = models.OrderStatusCancelled
		default:
			status = models.OrderStatusRefunded
		}

		orderID := fmt.Sprintf("O%08d", i)
		lines := 1 + rng.Intn(3)
		if lines > len(catalog) {
			lines = len(catalog)
		}

		var gross, shipping, cost int64
		seen := make(map[int]struct{}, lines)
		for n := 0; n < lines; n++ {
			idx := rng.Intn(len(catalog))
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			product := catalog[idx]
			qty := 1 + rng.Intn(3)
			amount := int64(qty) * product.Price

			gross += amount
			cost += int64(qty) * product.Cost
			shipping += shippingFee(product.CategoryL1) * int64(qty)

			details = append(details, models.OrderDetail{
				ID:        fmt.Sprintf("OD%08d", detailID),
				OrderID:   orderID,
				ProductID: product.ID,
				Quantity:  qty,
				UnitPrice: product.Price,
				Amount:    amount,
			})
			detailID++
		}

		paid := gross + shipping
		orderCost := cost
		if status != models.OrderStatusCompleted {
			paid = 0
			orderCost = 0
		}

		orders = append(orders, models.Order{
			ID:          orderID,
			UserID:      user.ID,
			StoreID:     store.ID,
			Platform:    store.Platform,
			OrderTime:   orderTime,
			Status:      status,
			GrossAmount: gross,
			Shipping:    shipping,
			PaidAmount:  paid,
			TotalCost:   orderCost,
		})
	}
	return orders, details
}

// shippingFee is charged per item: whole bikes ship for 30元, everything
// else for 3元.
func shippingFee(categoryL1 string) int64 {
	if strings.HasPrefix(categoryL1, "整车") {
		return 3000
	}
	return 300
}

func (g *Generator) buildPromotions(rng *rand.Rand, now time.Time, ds *Dataset, timeSpanDays int) []models.Promotion {
	byStore := make(map[string][]models.Product)
	for _, p := range ds.Products {
		byStore[p.StoreID] = append(byStore[p.StoreID], p)
	}

	var promos []models.Promotion
	id := 1
	for i, store := range ds.Stores {
		// Roughly half the stores run paid placements.
		if i%2 == 1 {
			continue
		}
		catalog := byStore[store.ID]
		if len(catalog) == 0 {
			continue
		}
		channels := platformChannels[store.Platform]
		if len(channels) == 0 {
			channels = defaultChannels
		}

		promoDays := int(float64(timeSpanDays) * (0.15 + rng.Float64()*0.15))
		if promoDays < 1 {
			promoDays = 1
		}
		for d := 0; d < promoDays; d++ {
			date := now.AddDate(0, 0, -rng.Intn(timeSpanDays)).Truncate(24 * time.Hour)
			perDay := 1 + rng.Intn(2)
			for n := 0; n < perDay; n++ {
				product := catalog[rng.Intn(len(catalog))]

				impressions := 3000 + rng.Intn(12001)
				// Click-through around 1.5-3%, noisy, never formulaic.
				clicks := int(float64(impressions) * (0.015 + rng.Float64()*0.015))

				cpcMin, cpcMax := 50.0, 100.0
				if shippingFee(product.CategoryL1) == 3000 {
					cpcMin, cpcMax = 80.0, 150.0
				}
				spend := int64(float64(clicks) * (cpcMin + rng.Float64()*(cpcMax-cpcMin)))
				if spend < 3000 {
					spend = 3000
				}

				promos = append(promos, models.Promotion{
					ID:          fmt.Sprintf("PM%08d", id),
					Date:        date,
					StoreID:     store.ID,
					Platform:    store.Platform,
					ProductID:   product.ID,
					CategoryL1:  product.CategoryL1,
					CategoryL2:  product.CategoryL2,
					Channel:     channels[rng.Intn(len(channels))],
					Spend:       spend,
					Impressions: impressions,
					Clicks:      clicks,
				})
				id++
			}
		}
	}
	return promos
}

func (g *Generator) buildTraffic(rng *rand.Rand, now time.Time, stores []models.Store, timeSpanDays int) []models.Traffic {
	days := timeSpanDays
	if days > 90 {
		days = 90
	}

	var records []models.Traffic
	for _, store := range stores {
		uvMin, uvMax := 800, 3000
		switch store.Platform {
		case "天猫":
			uvMin, uvMax = 2000, 8000
		case "京东":
			uvMin, uvMax = 1500, 6000
		}

		for d := 0; d < days; d++ {
			visitors := uvMin + rng.Intn(uvMax-uvMin+1)
			search := int(float64(visitors) * (0.30 + rng.Float64()*0.20))
			recommend := int(float64(visitors) * (0.20 + rng.Float64()*0.10))
			direct := int(float64(visitors) * (0.10 + rng.Float64()*0.10))

			records = append(records, models.Traffic{
				Date:             now.AddDate(0, 0, -d).Truncate(24 * time.Hour),
				StoreID:          store.ID,
				Platform:         store.Platform,
				Visitors:         visitors,
				PageViews:        int(float64(visitors) * (2.5 + rng.Float64()*2.0)),
				SearchTraffic:    search,
				RecommendTraffic: recommend,
				DirectTraffic:    direct,
			})
		}
	}
	return records
}

func (g *Generator) buildInventory(rng *rand.Rand, now time.Time, products []models.Product, timeSpanDays int) []models.InventoryMovement {
	days := timeSpanDays
	if days > 30 {
		days = 30
	}
	sample := products
	if len(sample) > 200 {
		sample = sample[:200]
	}

	var movements []models.InventoryMovement
	id := 1
	for _, product := range sample {
		stock := product.Stock
		for d := days - 1; d >= 0; d-- {
			date := now.AddDate(0, 0, -d).Truncate(24 * time.Hour)
			if rng.Intn(3) == 0 {
				qty := 20 + rng.Intn(61)
				stock += qty
				movements = append(movements, models.InventoryMovement{
					ID:             fmt.Sprintf("INV%08d", id),
					Date:           date,
					ProductID:      product.ID,
					StoreID:        product.StoreID,
					ChangeType:     models.InventoryInbound,
					ChangeQty:      qty,
					ResultingStock: stock,
				})
			} else {
				qty := 5 + rng.Intn(11)
				if qty > stock {
					qty = stock
				}
				if qty == 0 {
					continue
				}
				stock -= qty
				movements = append(movements, models.InventoryMovement{
					ID:             fmt.Sprintf("INV%08d", id),
					Date:           date,
					ProductID:      product.ID,
					StoreID:        product.StoreID,
					ChangeType:     models.InventoryOutbound,
					ChangeQty:      qty,
					ResultingStock: stock,
				})
			}
			id++
		}
	}
	return movements
}
