// Package cache keeps per-form question catalogs close to the request path.
package cache

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/vnkhanh/erp-questionnaire/questionnaire"
)

// QuestionLoader reads the active questions of a form from the backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, formID questionnaire.FormID) ([]questionnaire.Question, error)
}

// Catalog returns the active questions of a form, served from cache when
// possible.
type Catalog interface {
	Questions(ctx context.Context, formID questionnaire.FormID) ([]questionnaire.Question, error)
	// Invalidate drops the cached catalog of formID and of the all-forms scope.
	Invalidate(ctx context.Context, formID questionnaire.FormID) error
}

func key(formID questionnaire.FormID) string {
	if formID == questionnaire.AllForms {
		return "catalog:all"
	}
	return "catalog:form:" + strconv.FormatUint(uint64(formID), 10)
}

// loadTimeout bounds a shared load, which outlives the caller that started it.
const loadTimeout = 30 * time.Second

// loadContext detaches a shared load from the first caller's cancellation.
func loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
}

// ttlWithJitter spreads expiries up to 10% past ttl.
func ttlWithJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl + time.Duration(rand.Int64N(int64(ttl)/10+1))
}
