package stats

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fooddelivery/pkg/cache"
	"fooddelivery/pkg/models"
)

const (
	summaryKey = "stats:summary"
	topN       = 5
)

type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

type Totals struct {
	Customers   int64 `json:"customers"`
	Restaurants int64 `json:"restaurants"`
	Couriers    int64 `json:"couriers"`
	Dishes      int64 `json:"dishes"`
	Orders      int64 `json:"orders"`
}

type StatusCount struct {
	StatusID uint   `json:"status_id"`
	Status   string `json:"status"`
	Count    int64  `json:"count"`
}

type DishPopularity struct {
	DishID        uint   `json:"dish_id"`
	Name          string `json:"name"`
	OrderCount    int64  `json:"order_count"`
	TotalQuantity int64  `json:"total_quantity"`
}

type RestaurantRating struct {
	RestaurantID uint    `json:"restaurant_id"`
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
}

type Summary struct {
	Totals         Totals             `json:"totals"`
	OrdersByStatus []StatusCount      `json:"orders_by_status"`
	PopularDishes  []DishPopularity   `json:"popular_dishes"`
	TopRestaurants []RestaurantRating `json:"top_restaurants"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

type Service struct {
	db    *gorm.DB
	cache Cache
	log   logrus.FieldLogger
}

// NewService returns a statistics service. With a nil cache every call
// hits the database.
func NewService(db *gorm.DB, c Cache, log logrus.FieldLogger) *Service {
	return &Service{db: db, cache: c, log: log}
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	if s.cache != nil {
		var cached Summary
		err := s.cache.Get(ctx, summaryKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.WithError(err).Warn("stats cache read failed")
		}
	}

	summary, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summaryKey, summary); err != nil {
			s.log.WithError(err).Warn("stats cache write failed")
		}
	}
	return summary, nil
}

func (s *Service) compute(ctx context.Context) (*Summary, error) {
	db := s.db.WithContext(ctx)
	summary := &Summary{GeneratedAt: time.Now().UTC()}

	totals := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.Customer{}, &summary.Totals.Customers},
		{&models.Restaurant{}, &summary.Totals.Restaurants},
		{&models.Courier{}, &summary.Totals.Couriers},
		{&models.Dish{}, &summary.Totals.Dishes},
		{&models.Order{}, &summary.Totals.Orders},
	}
	for _, t := range totals {
		if err := db.Model(t.model).Count(t.dst).Error; err != nil {
			return nil, err
		}
	}

	err := db.Table("statuses AS s").
		Select("s.id AS status_id, s.name AS status, COUNT(o.id) AS count").
		Joins("LEFT JOIN orders o ON o.status_id = s.id").
		Group("s.id, s.name").
		Order("s.id").
		Scan(&summary.OrdersByStatus).Error
	if err != nil {
		return nil, err
	}

	err = db.Table("order_items AS oi").
		Select("d.id AS dish_id, d.name, COUNT(oi.id) AS order_count, COALESCE(SUM(oi.quantity), 0) AS total_quantity").
		Joins("JOIN dishes d ON d.id = oi.dish_id").
		Group("d.id, d.name").
		Order("order_count DESC, d.id").
		Limit(topN).
		Scan(&summary.PopularDishes).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Restaurant{}).
		Select("id AS restaurant_id, name, rating").
		Where("rating IS NOT NULL").
		Order("rating DESC, id").
		Limit(topN).
		Scan(&summary.TopRestaurants).Error
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// Invalidate drops the cached summary.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, summaryKey)
}

// Deleted invalidates the summary after a record was removed.
func (s *Service) Deleted(ctx context.Context, _ models.Kind, _ uint) error {
	return s.Invalidate(ctx)
}
