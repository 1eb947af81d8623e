package guard_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"fooddelivery/pkg/config"
	"fooddelivery/pkg/database"
	"fooddelivery/pkg/guard"
	"fooddelivery/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	log, _ := test.NewNullLogger()
	db, err := database.Open(config.Database{Driver: "sqlite", DSN: ":memory:", ConnectRetries: 1}, log)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func newGuard(t *testing.T, db *gorm.DB, notifiers ...guard.Notifier) (*guard.Guard, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return guard.New(database.NewStore(db), log, notifiers...), hook
}

type fixture struct {
	t  *testing.T
	db *gorm.DB
}

func (f fixture) restaurant(dishNames ...string) (models.Restaurant, []models.Dish) {
	restaurant := models.Restaurant{Name: "Tbilisi", Location: "15 Georgian St."}
	require.NoError(f.t, f.db.Create(&restaurant).Error)
	var dishes []models.Dish
	for _, name := range dishNames {
		dish := models.Dish{RestaurantID: restaurant.ID, Name: name, CookingTime: 20}
		require.NoError(f.t, f.db.Create(&dish).Error)
		dishes = append(dishes, dish)
	}
	return restaurant, dishes
}

func (f fixture) customer(phone string) models.Customer {
	c := models.Customer{Phone: phone, FirstName: "Ivan", LastName: "Petrov"}
	require.NoError(f.t, f.db.Create(&c).Error)
	return c
}

func (f fixture) courier(phone, car string) models.Courier {
	c := models.Courier{Phone: phone, FirstName: "Olga", LastName: "Nikolaeva", CarNumber: car}
	require.NoError(f.t, f.db.Create(&c).Error)
	return c
}

// order creates an order with one item per dish, each with quantity 1.
func (f fixture) order(customer models.Customer, dishes ...models.Dish) models.Order {
	o := models.Order{CustomerID: customer.ID, StatusID: models.StatusAccepted, OrderTime: time.Now()}
	require.NoError(f.t, f.db.Create(&o).Error)
	for _, d := range dishes {
		require.NoError(f.t, f.db.Create(&models.OrderItem{OrderID: o.ID, DishID: d.ID, Quantity: 1}).Error)
	}
	return o
}

func (f fixture) count(model interface{}, query string, args ...interface{}) int64 {
	var n int64
	q := f.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(f.t, q.Count(&n).Error)
	return n
}

func TestDeleteWithoutDependents(t *testing.T) {
	tests := []struct {
		name  string
		kind  models.Kind
		setup func(f fixture) (id uint, model interface{})
	}{
		{"customer", models.KindCustomer, func(f fixture) (uint, interface{}) {
			f.customer("+1")
			return f.customer("+2").ID, &models.Customer{}
		}},
		{"courier", models.KindCourier, func(f fixture) (uint, interface{}) {
			f.courier("+1", "A1")
			return f.courier("+2", "A2").ID, &models.Courier{}
		}},
		{"dish", models.KindDish, func(f fixture) (uint, interface{}) {
			_, dishes := f.restaurant("Khinkali", "Lobio")
			return dishes[1].ID, &models.Dish{}
		}},
		{"restaurant", models.KindRestaurant, func(f fixture) (uint, interface{}) {
			f.restaurant()
			r, _ := f.restaurant()
			return r.ID, &models.Restaurant{}
		}},
		{"status", models.KindStatus, func(f fixture) (uint, interface{}) {
			return models.StatusCancelled, &models.Status{}
		}},
		{"review", models.KindReview, func(f fixture) (uint, interface{}) {
			o := f.order(f.customer("+1"))
			f.db.Create(&models.Review{OrderID: o.ID, Rating: 4})
			r := models.Review{OrderID: o.ID, Rating: 5}
			require.NoError(f.t, f.db.Create(&r).Error)
			return r.ID, &models.Review{}
		}},
		{"delivery", models.KindDelivery, func(f fixture) (uint, interface{}) {
			o := f.order(f.customer("+1"))
			d := models.Delivery{OrderID: o.ID}
			require.NoError(f.t, f.db.Create(&d).Error)
			return d.ID, &models.Delivery{}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			f := fixture{t: t, db: db}
			id, model := tt.setup(f)
			before := f.count(model, "")

			g, _ := newGuard(t, db)
			res := g.Delete(context.Background(), tt.kind, id)

			assert.True(t, res.OK, res.Message)
			assert.Equal(t, guard.OutcomeDeleted, res.Outcome)
			assert.Equal(t, before-1, f.count(model, ""))
			assert.Zero(t, f.count(model, "id = ?", id))
		})
	}
}

func TestDeleteDishReferencedByOrders(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	_, dishes := f.restaurant("Khinkali", "Khachapuri")
	dish := dishes[1]
	c := f.customer("+1")

	o1 := f.order(c)
	o2 := f.order(c)
	require.NoError(t, db.Create(&models.OrderItem{OrderID: o1.ID, DishID: dish.ID, Quantity: 2}).Error)
	require.NoError(t, db.Create(&models.OrderItem{OrderID: o2.ID, DishID: dish.ID, Quantity: 1}).Error)

	g, _ := newGuard(t, db)
	res := g.Delete(context.Background(), models.KindDish, dish.ID)

	assert.False(t, res.OK)
	assert.Equal(t, guard.OutcomeBlocked, res.Outcome)
	assert.Equal(t, fmt.Sprintf("cannot delete dish #%d: used in 2 orders", dish.ID), res.Message)

	var blocked *guard.BlockedError
	require.True(t, errors.As(res.Err, &blocked))
	assert.Equal(t, int64(2), blocked.Count)
	assert.Equal(t, f.count(&models.OrderItem{}, "dish_id = ?", dish.ID), blocked.Count)

	assert.Equal(t, int64(1), f.count(&models.Dish{}, "id = ?", dish.ID))
}

func TestDeleteRestaurantBlockedIsAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	restaurant, dishes := f.restaurant("Pkhali", "Khinkali", "Lobio")
	c := f.customer("+1")
	f.order(c, dishes[1])
	f.order(c, dishes[1], dishes[2])

	g, _ := newGuard(t, db)
	res := g.Delete(context.Background(), models.KindRestaurant, restaurant.ID)

	assert.False(t, res.OK)
	assert.Equal(t, guard.OutcomeBlocked, res.Outcome)
	assert.Equal(t,
		fmt.Sprintf(`cannot delete restaurant #%d: dish "Khinkali" is used in 2 orders`, restaurant.ID),
		res.Message)

	var blocked *guard.BlockedError
	require.True(t, errors.As(res.Err, &blocked))
	require.NotNil(t, blocked.Via)
	assert.Equal(t, dishes[1].ID, blocked.Via.ID)

	assert.Equal(t, int64(1), f.count(&models.Restaurant{}, "id = ?", restaurant.ID))
	assert.Equal(t, int64(3), f.count(&models.Dish{}, "restaurant_id = ?", restaurant.ID))
}

func TestDeleteRestaurantRemovesUnusedDishes(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	restaurant, _ := f.restaurant("Pkhali", "Khinkali", "Lobio")
	other, otherDishes := f.restaurant("Elarji")
	f.order(f.customer("+1"), otherDishes[0])

	g, _ := newGuard(t, db)
	res := g.Delete(context.Background(), models.KindRestaurant, restaurant.ID)

	require.True(t, res.OK, res.Message)
	assert.Equal(t, []guard.Dependent{{Label: "Dishes", Count: 3}}, res.Removed)
	assert.Zero(t, f.count(&models.Restaurant{}, "id = ?", restaurant.ID))
	assert.Zero(t, f.count(&models.Dish{}, "restaurant_id = ?", restaurant.ID))
	assert.Equal(t, int64(1), f.count(&models.Dish{}, "restaurant_id = ?", other.ID))
}

func TestDeleteOrderCascades(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	_, dishes := f.restaurant("Khinkali", "Lobio")
	c := f.customer("+1")
	courier := f.courier("+2", "A123BC")

	order := f.order(c, dishes...)
	kept := f.order(c, dishes[0])
	require.NoError(t, db.Create(&models.Delivery{OrderID: order.ID, CourierID: &courier.ID}).Error)
	require.NoError(t, db.Create(&models.Review{OrderID: order.ID, Rating: 5, Description: "Great"}).Error)

	g, _ := newGuard(t, db)
	ctx := context.Background()
	res := g.Delete(ctx, models.KindOrder, order.ID)

	require.True(t, res.OK, res.Message)
	assert.Equal(t, guard.OutcomeDeleted, res.Outcome)
	assert.Equal(t, []guard.Dependent{
		{Label: "Reviews", Count: 1},
		{Label: "Deliveries", Count: 1},
		{Label: "Order items", Count: 2},
	}, res.Removed)

	assert.Zero(t, f.count(&models.Order{}, "id = ?", order.ID))
	assert.Zero(t, f.count(&models.OrderItem{}, "order_id = ?", order.ID))
	assert.Zero(t, f.count(&models.Delivery{}, "order_id = ?", order.ID))
	assert.Zero(t, f.count(&models.Review{}, "order_id = ?", order.ID))
	assert.Equal(t, int64(1), f.count(&models.OrderItem{}, "order_id = ?", kept.ID))

	// The courier is master data and survives its delivery being purged.
	assert.Equal(t, int64(1), f.count(&models.Courier{}, "id = ?", courier.ID))
}

func TestDeleteOrderExample(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	_, dishes := f.restaurant("Khinkali", "Lobio")
	order := f.order(f.customer("+1"), dishes...)
	require.NoError(t, db.Create(&models.Delivery{OrderID: order.ID}).Error)

	g, _ := newGuard(t, db)
	ctx := context.Background()

	deps, err := g.CheckDependents(ctx, models.KindOrder, order.ID)
	require.NoError(t, err)
	assert.Equal(t, []guard.Dependent{
		{Label: "Order items", Count: 2},
		{Label: "Deliveries", Count: 1},
		{Label: "Reviews", Count: 0},
	}, deps)

	res := g.Delete(ctx, models.KindOrder, order.ID)
	require.True(t, res.OK, res.Message)

	deps, err = g.CheckDependents(ctx, models.KindOrder, order.ID)
	require.NoError(t, err)
	for _, d := range deps {
		assert.Zero(t, d.Count, d.Label)
	}
}

func TestDeleteCustomer(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	busy := f.customer("+1")
	idle := f.customer("+2")
	for i := 0; i < 3; i++ {
		f.order(busy)
	}

	g, _ := newGuard(t, db)
	ctx := context.Background()

	res := g.Delete(ctx, models.KindCustomer, busy.ID)
	assert.False(t, res.OK)
	assert.Equal(t, fmt.Sprintf("cannot delete customer #%d: has 3 orders", busy.ID), res.Message)
	assert.Equal(t, int64(1), f.count(&models.Customer{}, "id = ?", busy.ID))

	res = g.Delete(ctx, models.KindCustomer, idle.ID)
	assert.True(t, res.OK, res.Message)
	assert.Zero(t, f.count(&models.Customer{}, "id = ?", idle.ID))
}

func TestDeleteCourierWithDelivery(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	courier := f.courier("+1", "A123BC")
	order := f.order(f.customer("+2"))
	require.NoError(t, db.Create(&models.Delivery{OrderID: order.ID, CourierID: &courier.ID}).Error)

	g, _ := newGuard(t, db)
	res := g.Delete(context.Background(), models.KindCourier, courier.ID)

	assert.False(t, res.OK)
	assert.Equal(t, guard.OutcomeBlocked, res.Outcome)
	assert.Equal(t, fmt.Sprintf("cannot delete courier #%d: has 1 delivery", courier.ID), res.Message)
}

func TestDeleteMissingIsNoOpSuccess(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	f.customer("+1")
	notifier := &recordingNotifier{}
	g, _ := newGuard(t, db, notifier)

	for _, kind := range []models.Kind{models.KindOrder, models.KindDish, models.KindRestaurant, models.KindCustomer, models.KindReview} {
		res := g.Delete(context.Background(), kind, 999)
		assert.True(t, res.OK, kind.String())
		assert.Equal(t, guard.OutcomeNotFound, res.Outcome, kind.String())
	}
	assert.Equal(t, int64(1), f.count(&models.Customer{}, ""))
	assert.Empty(t, notifier.calls)
}

func TestDeleteStatusInUseIsReferenced(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	f.order(f.customer("+1"))

	g, hook := newGuard(t, db)
	res := g.Delete(context.Background(), models.KindStatus, models.StatusAccepted)

	assert.False(t, res.OK)
	assert.Equal(t, guard.OutcomeReferenced, res.Outcome)
	assert.Equal(t, "cannot delete record: it is referenced by other data", res.Message)
	assert.ErrorIs(t, res.Err, guard.ErrReferenced)
	assert.Equal(t, int64(6), f.count(&models.Status{}, ""))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestCheckDependentsLabels(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	restaurant, dishes := f.restaurant("Khinkali", "Lobio")
	c := f.customer("+1")
	courier := f.courier("+2", "A1")
	o := f.order(c, dishes[0])
	require.NoError(t, db.Create(&models.Delivery{OrderID: o.ID, CourierID: &courier.ID}).Error)

	g, _ := newGuard(t, db)
	ctx := context.Background()

	tests := []struct {
		name string
		kind models.Kind
		id   uint
		want []guard.Dependent
	}{
		{"restaurant", models.KindRestaurant, restaurant.ID, []guard.Dependent{{Label: "Dishes", Count: 2}}},
		{"dish", models.KindDish, dishes[0].ID, []guard.Dependent{{Label: "Used in orders", Count: 1}}},
		{"unused dish", models.KindDish, dishes[1].ID, []guard.Dependent{{Label: "Used in orders", Count: 0}}},
		{"customer", models.KindCustomer, c.ID, []guard.Dependent{{Label: "Orders", Count: 1}}},
		{"courier", models.KindCourier, courier.ID, []guard.Dependent{{Label: "Deliveries", Count: 1}}},
		{"status", models.KindStatus, models.StatusAccepted, []guard.Dependent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, err := g.CheckDependents(ctx, tt.kind, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, deps)
		})
	}

	_, err := g.CheckDependents(ctx, models.Kind(0), 1)
	assert.Error(t, err)
}

type recordingNotifier struct {
	calls []string
	err   error
}

func (n *recordingNotifier) Deleted(_ context.Context, kind models.Kind, id uint) error {
	n.calls = append(n.calls, fmt.Sprintf("%s:%d", kind, id))
	return n.err
}

func TestDeleteNotifies(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	c := f.customer("+1")
	ok := &recordingNotifier{}
	failing := &recordingNotifier{err: errors.New("broker down")}

	g, hook := newGuard(t, db, failing, ok)
	res := g.Delete(context.Background(), models.KindCustomer, c.ID)

	assert.True(t, res.OK)
	assert.Equal(t, []string{fmt.Sprintf("customer:%d", c.ID)}, ok.calls)
	assert.Equal(t, []string{fmt.Sprintf("customer:%d", c.ID)}, failing.calls)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "deletion notifier failed" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestDeleteBlockedDoesNotNotify(t *testing.T) {
	db := setupTestDB(t)
	f := fixture{t: t, db: db}
	c := f.customer("+1")
	f.order(c)
	notifier := &recordingNotifier{}

	g, _ := newGuard(t, db, notifier)
	res := g.Delete(context.Background(), models.KindCustomer, c.ID)

	assert.False(t, res.OK)
	assert.Empty(t, notifier.calls)
}
