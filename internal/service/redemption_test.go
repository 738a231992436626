package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"event-tickets/internal/model"
)

func TestValidateFreshTicket(t *testing.T) {
	f := newFixture(t, nil)
	created := f.createManual(t, 4)

	resp, err := f.redemption.Validate(context.Background(), created.Ticket.Code)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !resp.Valid || resp.RemainingQuantity != 4 || resp.FullyRedeemed {
		t.Fatalf("unexpected validate response %+v", resp)
	}
	if resp.State != string(model.StateUnredeemed) {
		t.Fatalf("unexpected state %s", resp.State)
	}
}

func TestRedeemSequentialTimestamps(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.issue(t, "cs_seq", model.PurchaseStatusPaid, 4)

	base := time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)
	calls := []time.Time{base, base.Add(5 * time.Minute), base.Add(40 * time.Minute)}

	for i, at := range calls {
		at := at
		f.redemption.now = func() time.Time { return at }

		resp, err := f.redemption.Redeem(context.Background(), ticket.Code, 1)
		if err != nil {
			t.Fatalf("redeem #%d: %v", i+1, err)
		}
		if !resp.Success || resp.RedeemedNow != 1 {
			t.Fatalf("redeem #%d: unexpected response %+v", i+1, resp)
		}
	}

	resp, err := f.redemption.Validate(context.Background(), ticket.Code)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if resp.RedeemedCount != 3 || resp.RemainingQuantity != 1 || resp.FullyRedeemed {
		t.Fatalf("unexpected counts %+v", resp)
	}
	if resp.State != string(model.StatePartiallyRedeemed) {
		t.Fatalf("unexpected state %s", resp.State)
	}
	if resp.FirstRedeemedAt == nil || !resp.FirstRedeemedAt.Equal(calls[0]) {
		t.Fatalf("first_redeemed_at should stay at first call, got %v", resp.FirstRedeemedAt)
	}
	if resp.LastRedeemedAt == nil || !resp.LastRedeemedAt.Equal(calls[2]) {
		t.Fatalf("last_redeemed_at should be the third call, got %v", resp.LastRedeemedAt)
	}
}

func TestRedeemUnknownCodeHasNoSideEffects(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.issue(t, "cs_other", model.PurchaseStatusPaid, 2)

	resp, err := f.redemption.Redeem(context.Background(), "nonexistent-code", 1)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if resp.Success || resp.Reason != ReasonNotFound {
		t.Fatalf("expected NOT_FOUND, got %+v", resp)
	}

	if got := f.reload(t, ticket.Code); got.RedeemedCount != 0 || got.LastRedeemedAt != nil {
		t.Fatalf("unrelated ticket mutated: %+v", got)
	}
}

func TestUnpaidTicketIsRejected(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.issue(t, "cs_pending", model.PurchaseStatusPending, 3)

	if err := f.db.Model(&model.Ticket{}).Where("id = ?", ticket.ID).Update("redeemed_count", 1).Error; err != nil {
		t.Fatalf("set redeemed count: %v", err)
	}

	v, err := f.redemption.Validate(context.Background(), ticket.Code)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.Valid || v.Reason != ReasonNotPaid || v.Status != string(model.PurchaseStatusPending) {
		t.Fatalf("expected NOT_PAID with status, got %+v", v)
	}

	r, err := f.redemption.Redeem(context.Background(), ticket.Code, 1)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if r.Success || r.Reason != ReasonNotPaid {
		t.Fatalf("expected NOT_PAID, got %+v", r)
	}
	if got := f.reload(t, ticket.Code); got.RedeemedCount != 1 {
		t.Fatalf("unpaid ticket mutated: %d", got.RedeemedCount)
	}
}

func TestRedeemClampsToRemaining(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.issue(t, "cs_clamp", model.PurchaseStatusPaid, 4)

	first, err := f.redemption.Redeem(context.Background(), ticket.Code, 10)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !first.Success || first.RedeemedNow != 4 || first.RemainingQuantity != 0 || !first.FullyRedeemed {
		t.Fatalf("expected clamp to 4, got %+v", first)
	}

	again, err := f.redemption.Redeem(context.Background(), ticket.Code, 1)
	if err != nil {
		t.Fatalf("redeem again: %v", err)
	}
	if again.Success || again.Reason != ReasonAlreadyFullyRedeemed || again.RemainingQuantity != 0 {
		t.Fatalf("expected ALREADY_FULLY_REDEEMED, got %+v", again)
	}
	if got := f.reload(t, ticket.Code); got.RedeemedCount != 4 {
		t.Fatalf("redeemed count exceeded quantity: %d", got.RedeemedCount)
	}
}

func TestRedeemRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.issue(t, "cs_input", model.PurchaseStatusPaid, 2)

	if _, err := f.redemption.Redeem(context.Background(), "   ", 1); !errors.Is(err, ErrValidation) || !errors.Is(err, ErrMissingCode) {
		t.Fatalf("expected missing code validation error, got %v", err)
	}
	if _, err := f.redemption.Redeem(context.Background(), ticket.Code, 0); !errors.Is(err, ErrInvalidRedeemCount) {
		t.Fatalf("expected invalid redeem count, got %v", err)
	}
	if _, err := f.redemption.Validate(context.Background(), ""); !errors.Is(err, ErrMissingCode) {
		t.Fatalf("expected missing code, got %v", err)
	}
}

func TestRedeemNormalizesCode(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.issue(t, "cs_norm", model.PurchaseStatusPaid, 1)

	resp, err := f.redemption.Redeem(context.Background(), "  "+strings.ToLower(ticket.Code)+" ", 1)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !resp.Success || resp.Code != ticket.Code {
		t.Fatalf("expected normalized match, got %+v", resp)
	}
}

func TestValidateIsReadOnly(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.issue(t, "cs_ro", model.PurchaseStatusPaid, 3)
	if _, err := f.redemption.Redeem(context.Background(), ticket.Code, 1); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	before := f.reload(t, ticket.Code)

	first, err := f.redemption.Validate(context.Background(), ticket.Code)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	second, err := f.redemption.Validate(context.Background(), ticket.Code)
	if err != nil {
		t.Fatalf("validate again: %v", err)
	}
	if first.RedeemedCount != second.RedeemedCount || first.RemainingQuantity != second.RemainingQuantity {
		t.Fatalf("validate not idempotent: %+v vs %+v", first, second)
	}

	after := f.reload(t, ticket.Code)
	if after.RedeemedCount != before.RedeemedCount || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("validate mutated ticket: before %+v after %+v", before, after)
	}
}

// The sqlite test database has a single connection, so these transactions
// run one after another and the row lock is never contended here. What is
// covered is the clamp and guarded update deciding each outcome, and every
// caller past the quantity being told the ticket is fully redeemed.
func TestConcurrentRedeemsNeverExceedQuantity(t *testing.T) {
	cases := []struct {
		name     string
		quantity int
		callers  int
	}{
		{"more callers than seats", 5, 12},
		{"fewer callers than seats", 5, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			ticket := f.issue(t, "cs_race", model.PurchaseStatusPaid, tc.quantity)

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				rejected  = map[string]int{}
				failures  []error
			)
			for i := 0; i < tc.callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					resp, err := f.redemption.Redeem(context.Background(), ticket.Code, 1)

					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						failures = append(failures, err)
						return
					}
					if resp.Success {
						successes++
						return
					}
					rejected[resp.Reason]++
				}()
			}
			wg.Wait()

			if len(failures) > 0 {
				t.Fatalf("unexpected redeem errors: %v", failures)
			}
			if want := min(tc.callers, tc.quantity); successes != want {
				t.Fatalf("expected %d successes, got %d", want, successes)
			}
			if want := tc.callers - min(tc.callers, tc.quantity); rejected[ReasonAlreadyFullyRedeemed] != want || len(rejected) > min(want, 1) {
				t.Fatalf("expected %d %s rejections, got %v", want, ReasonAlreadyFullyRedeemed, rejected)
			}
			if got := f.reload(t, ticket.Code); got.RedeemedCount != min(tc.callers, tc.quantity) {
				t.Fatalf("unexpected redeemed count %d", got.RedeemedCount)
			}
		})
	}
}
