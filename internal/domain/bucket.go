package domain

import "strings"

// Bucket names one of the four per-variant counters. Values double as column names.
type Bucket string

const (
	BucketStock     Bucket = "stock"
	BucketDamaged   Bucket = "damaged_stock"
	BucketWash      Bucket = "wash_stock"
	BucketRepackage Bucket = "repackage_stock"
)

var Buckets = []Bucket{BucketStock, BucketDamaged, BucketWash, BucketRepackage}

func (b Bucket) Valid() bool {
	switch b {
	case BucketStock, BucketDamaged, BucketWash, BucketRepackage:
		return true
	}
	return false
}

func ParseBucket(raw string) (Bucket, error) {
	if raw == "" {
		return BucketStock, nil
	}
	b := Bucket(strings.ToLower(strings.TrimSpace(raw)))
	if !b.Valid() {
		return "", Invalid("unknown stock bucket %q", raw)
	}
	return b, nil
}

// ReturnType is the condition a returned item comes back in.
type ReturnType string

const (
	ReturnValid     ReturnType = "VALID"
	ReturnDamaged   ReturnType = "DAMAGED"
	ReturnWash      ReturnType = "WASH"
	ReturnRepackage ReturnType = "REPACKAGE"
)

var returnBuckets = map[ReturnType]Bucket{
	ReturnValid:     BucketStock,
	ReturnDamaged:   BucketDamaged,
	ReturnWash:      BucketWash,
	ReturnRepackage: BucketRepackage,
}

// Bucket is the counter an approved return of this type is credited to.
func (t ReturnType) Bucket() (Bucket, bool) {
	b, ok := returnBuckets[t]
	return b, ok
}

func ParseReturnType(raw string) (ReturnType, error) {
	t := ReturnType(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := returnBuckets[t]; !ok {
		return "", Invalid("unknown return type %q", raw)
	}
	return t, nil
}
