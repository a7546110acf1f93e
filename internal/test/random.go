package test

import (
	"math/rand"
	"sync"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomCart returns between 1 and maxLines distinct lines drawn from productIDs,
// each with a quantity in [1, maxQty].
func RandomCart(productIDs []int64, maxLines, maxQty int) []model.CartLine {
	if maxLines <= 0 || maxLines > len(productIDs) {
		maxLines = len(productIDs)
	}
	if maxQty <= 0 {
		maxQty = 1
	}
	rngMu.Lock()
	defer rngMu.Unlock()

	perm := rng.Perm(len(productIDs))
	count := 1 + rng.Intn(maxLines)
	lines := make([]model.CartLine, 0, count)
	for _, idx := range perm[:count] {
		lines = append(lines, model.CartLine{ProductID: productIDs[idx], Quantity: 1 + rng.Intn(maxQty)})
	}
	return lines
}
