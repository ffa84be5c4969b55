package features

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/app/apptest"
	"github.com/ariefcatur/go-storefront/internal/bookings"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/returns"
	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type stockContext struct {
	f        *apptest.Fixture
	product  domain.Product
	variants map[string]domain.Variant
	orders   []domain.Order
	booking  domain.Booking
	ret      domain.ReturnRequest
	err      error
	results  []error
}

func (c *stockContext) reset(t testing.TB) {
	c.f = apptest.New(t)
	c.product = domain.Product{}
	c.variants = map[string]domain.Variant{}
	c.orders = nil
	c.booking = domain.Booking{}
	c.ret = domain.ReturnRequest{}
	c.err = nil
	c.results = nil
}

// pending surfaces an error left by an earlier step that nobody asserted on.
func (c *stockContext) pending() error {
	if c.err != nil {
		err := c.err
		c.err = nil
		return fmt.Errorf("unexpected error from previous step: %w", err)
	}
	return nil
}

func (c *stockContext) variant(size string) (domain.Variant, error) {
	v, ok := c.variants[size]
	if !ok {
		return domain.Variant{}, fmt.Errorf("no variant of size %q", size)
	}
	return v, nil
}

func (c *stockContext) order(n int) (domain.Order, error) {
	if n < 1 || n > len(c.orders) {
		return domain.Order{}, fmt.Errorf("order %d was never placed", n)
	}
	return c.orders[n-1], nil
}

func (c *stockContext) aProductWithAVariantHoldingUnits(name, size string, stock int) error {
	ctx := context.Background()
	p, err := c.f.Catalog.CreateProduct(ctx, catalog.ProductInput{Name: name, Price: decimal.NewFromInt(100000)})
	if err != nil {
		return err
	}
	v, err := c.f.Catalog.AddVariant(ctx, p.ID, catalog.VariantInput{Color: "black", Size: size, Stock: stock})
	if err != nil {
		return err
	}
	c.product = p
	c.variants[v.Size] = v
	return nil
}

func (c *stockContext) aGuestOrdersUnitsOf(qty int, size string) error {
	if err := c.pending(); err != nil {
		return err
	}
	v, err := c.variant(size)
	if err != nil {
		return err
	}
	o, _, err := c.f.Orders.Create(context.Background(), apptest.GuestOrder(c.product.ID, v.ID, qty))
	if err != nil {
		c.err = err
		return nil
	}
	c.orders = append(c.orders, o)
	return nil
}

func (c *stockContext) guestsOrderUnitsOfAtTheSameTime(n, qty int, size string) error {
	v, err := c.variant(size)
	if err != nil {
		return err
	}
	c.results = make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, c.results[i] = c.f.Orders.Create(context.Background(), apptest.GuestOrder(c.product.ID, v.ID, qty))
		}(i)
	}
	wg.Wait()
	return nil
}

func (c *stockContext) orderIsMovedTo(n int, status string) error {
	if err := c.pending(); err != nil {
		return err
	}
	o, err := c.order(n)
	if err != nil {
		return err
	}
	if _, err := c.f.Orders.UpdateStatus(context.Background(), o.ID, status); err != nil {
		c.err = err
	}
	return nil
}

func (c *stockContext) orderIsMovedToByRequestsAtTheSameTime(n int, status string, requests int) error {
	o, err := c.order(n)
	if err != nil {
		return err
	}
	c.results = make([]error, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, c.results[i] = c.f.Orders.UpdateStatus(context.Background(), o.ID, status)
		}(i)
	}
	wg.Wait()
	for _, err := range c.results {
		if err != nil {
			return fmt.Errorf("concurrent transition failed: %w", err)
		}
	}
	return nil
}

func (c *stockContext) orderIs(n int, status string) error {
	if err := c.pending(); err != nil {
		return err
	}
	o, err := c.order(n)
	if err != nil {
		return err
	}
	got, err := c.f.Orders.Get(context.Background(), o.ID)
	if err != nil {
		return err
	}
	if string(got.Status) != status {
		return fmt.Errorf("expected order %d to be %s, got %s", n, status, got.Status)
	}
	return nil
}

func (c *stockContext) theRequestIsRejectedForLackOfStock() error {
	var short *domain.ShortageError
	if !errors.As(c.err, &short) {
		return fmt.Errorf("expected a stock shortage, got %v", c.err)
	}
	c.err = nil
	return nil
}

func (c *stockContext) theRequestIsRejectedAsAConflict() error {
	if !errors.Is(c.err, domain.ErrConflict) {
		return fmt.Errorf("expected a conflict, got %v", c.err)
	}
	c.err = nil
	return nil
}

func (c *stockContext) ofThemSucceedsAndIsRejectedForLackOfStock(ok, rejected int) error {
	gotOK, gotRejected := 0, 0
	for _, err := range c.results {
		var short *domain.ShortageError
		switch {
		case err == nil:
			gotOK++
		case errors.As(err, &short):
			gotRejected++
		default:
			return fmt.Errorf("unexpected error: %w", err)
		}
	}
	if gotOK != ok || gotRejected != rejected {
		return fmt.Errorf("expected %d ok and %d rejected, got %d and %d", ok, rejected, gotOK, gotRejected)
	}
	return nil
}

func (c *stockContext) theOfIs(bucket, size string, want int) error {
	if err := c.pending(); err != nil {
		return err
	}
	b, err := domain.ParseBucket(bucket)
	if err != nil {
		return err
	}
	v, err := c.variant(size)
	if err != nil {
		return err
	}
	var got int
	p, err := c.f.Catalog.GetProduct(context.Background(), c.product.ID)
	if err != nil {
		return err
	}
	for _, pv := range p.Variants {
		if pv.ID == v.ID {
			got = pv.Count(b)
		}
	}
	if got != want {
		return fmt.Errorf("expected %s of %s to be %d, got %d", b, size, want, got)
	}
	return nil
}

func (c *stockContext) aBookingIsMadeForModelInSize(model, size string) error {
	b, err := c.f.Bookings.Create(context.Background(), bookings.CreateInput{
		Name:         "Sari",
		Phone:        "081299990000",
		ProductModel: model,
		ProductSize:  size,
	})
	if err != nil {
		return err
	}
	c.booking = b
	return nil
}

func (c *stockContext) theBookingIsMovedTo(status string) error {
	b, err := c.f.Bookings.Update(context.Background(), c.booking.ID, bookings.UpdateInput{Status: &status})
	if err != nil {
		return err
	}
	c.booking = b
	return nil
}

func (c *stockContext) theBookingIsDeleted() error {
	return c.f.Bookings.Delete(context.Background(), c.booking.ID)
}

func (c *stockContext) aReturnOfUnitsIsRequestedForOrder(typ string, qty, n int) error {
	if err := c.pending(); err != nil {
		return err
	}
	o, err := c.order(n)
	if err != nil {
		return err
	}
	r, err := c.f.Returns.Create(context.Background(), returns.CreateInput{
		OrderID:   o.ID,
		ProductID: c.product.ID,
		Quantity:  qty,
		Type:      typ,
	})
	if err != nil {
		return err
	}
	c.ret = r
	return nil
}

func (c *stockContext) theReturnIsMarked(status string) error {
	r, err := c.f.Returns.Review(context.Background(), c.ret.ID, returns.ReviewInput{Status: status})
	if err != nil {
		return err
	}
	c.ret = r
	return nil
}

func initializeScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(sc *godog.ScenarioContext) {
		c := &stockContext{}

		sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
			c.reset(t)
			return ctx, nil
		})
		sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
			if err == nil {
				err = c.pending()
			}
			return ctx, err
		})

		sc.Step(`^a product "([^"]*)" with a "([^"]*)" variant holding (\d+) units$`, c.aProductWithAVariantHoldingUnits)
		sc.Step(`^a guest orders (\d+) units? of "([^"]*)"$`, c.aGuestOrdersUnitsOf)
		sc.Step(`^(\d+) guests order (\d+) units? of "([^"]*)" at the same time$`, c.guestsOrderUnitsOfAtTheSameTime)
		sc.Step(`^order (\d+) is moved to "([^"]*)"$`, c.orderIsMovedTo)
		sc.Step(`^order (\d+) is moved to "([^"]*)" by (\d+) requests at the same time$`, c.orderIsMovedToByRequestsAtTheSameTime)
		sc.Step(`^order (\d+) is "([^"]*)"$`, c.orderIs)
		sc.Step(`^the request is rejected for lack of stock$`, c.theRequestIsRejectedForLackOfStock)
		sc.Step(`^the request is rejected as a conflict$`, c.theRequestIsRejectedAsAConflict)
		sc.Step(`^(\d+) of them succeeds and (\d+) is rejected for lack of stock$`, c.ofThemSucceedsAndIsRejectedForLackOfStock)
		sc.Step(`^the "([^"]*)" of "([^"]*)" is (\d+)$`, c.theOfIs)
		sc.Step(`^a booking is made for model "([^"]*)" in size "([^"]*)"$`, c.aBookingIsMadeForModelInSize)
		sc.Step(`^the booking is moved to "([^"]*)"$`, c.theBookingIsMovedTo)
		sc.Step(`^the booking is deleted$`, c.theBookingIsDeleted)
		sc.Step(`^a "([^"]*)" return of (\d+) units is requested for order (\d+)$`, c.aReturnOfUnitsIsRequestedForOrder)
		sc.Step(`^the return is marked "([^"]*)"$`, c.theReturnIsMarked)
	}
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario(t),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"inventory.feature"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
