package domain

import "strings"

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Committed reports whether stock is held for an order in this status.
// The empty status stands for an order that does not exist (yet or anymore).
func (s OrderStatus) Committed() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered:
		return true
	}
	return false
}

func (s OrderStatus) Valid() bool {
	return s.Committed() || s == OrderCancelled
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if raw == "" {
		return "", Invalid("status is required")
	}
	if !s.Valid() {
		return "", Invalid("unknown order status %q", raw)
	}
	return s, nil
}

// StockEffect is what a status change does to the sellable counter of every item.
type StockEffect int

const (
	EffectNone StockEffect = iota
	EffectReserve
	EffectRelease
)

func (e StockEffect) String() string {
	switch e {
	case EffectReserve:
		return "reserve"
	case EffectRelease:
		return "release"
	}
	return "none"
}

// Sign turns an effect into the multiplier applied to item quantities.
func (e StockEffect) Sign() int {
	switch e {
	case EffectReserve:
		return -1
	case EffectRelease:
		return 1
	}
	return 0
}

// orderEffects is indexed by [from committed][to committed]. Stock is taken
// when an order is created (absent -> PENDING) and given back exactly once
// when it leaves the committed set.
var orderEffects = map[bool]map[bool]StockEffect{
	false: {false: EffectNone, true: EffectReserve},
	true:  {false: EffectRelease, true: EffectNone},
}

// OrderEffect is the single transition table used by create, status update
// and delete. Pass "" as from for creation and as to for deletion.
func OrderEffect(from, to OrderStatus) StockEffect {
	if from == to {
		return EffectNone
	}
	return orderEffects[from.Committed()][to.Committed()]
}

// CanTransition rejects the only status change that would put goods the
// customer already holds back on the shelf.
func CanTransition(from, to OrderStatus) bool {
	return !(from == OrderDelivered && to == OrderCancelled)
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

func ParseBookingStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return s, nil
	}
	return "", Invalid("unknown booking status %q", raw)
}

// BookingEffect holds one unit while a booking is CONFIRMED.
func BookingEffect(from, to BookingStatus) StockEffect {
	switch {
	case from != BookingConfirmed && to == BookingConfirmed:
		return EffectReserve
	case from == BookingConfirmed && to != BookingConfirmed:
		return EffectRelease
	}
	return EffectNone
}

type ReturnStatus string

const (
	ReturnPending  ReturnStatus = "PENDING"
	ReturnApproved ReturnStatus = "APPROVED"
	ReturnRejected ReturnStatus = "REJECTED"
)

func ParseReturnStatus(raw string) (ReturnStatus, error) {
	s := ReturnStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if raw == "" {
		return "", Invalid("status is required")
	}
	switch s {
	case ReturnPending, ReturnApproved, ReturnRejected:
		return s, nil
	}
	return "", Invalid("unknown return status %q", raw)
}

func (s ReturnStatus) Decided() bool {
	return s == ReturnApproved || s == ReturnRejected
}
