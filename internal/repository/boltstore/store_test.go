package boltstore

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/repository"
)

func usd(minor int64) domain.Money { return domain.NewMoney(minor, domain.CurrencyUSD) }

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		db    *DB
		alice *domain.User
		bob   *domain.User
	)

	newUser := func(name string) *domain.User {
		u := &domain.User{ID: uuid.New(), Username: name, Email: name + "@example.com", CreatedAt: time.Now().UTC()}
		Expect(db.Users().Create(ctx, u)).To(Succeed())
		return u
	}

	newExpense := func(creator *domain.User, total int64, participants ...*domain.User) *domain.Expense {
		e := &domain.Expense{
			Title:     "Dinner",
			Total:     usd(total),
			SplitType: domain.SplitTypeEqual,
			CreatedBy: creator.ID,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		n := int64(len(participants))
		for i, p := range participants {
			share := total / n
			if int64(i) < total%n {
				share++
			}
			e.Splits = append(e.Splits, domain.ResolvedSplit{UserID: p.ID, Amount: usd(share)})
		}
		return e
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = Open(filepath.Join(GinkgoT().TempDir(), "split.db"))
		Expect(err).NotTo(HaveOccurred())

		alice = newUser("alice")
		bob = newUser("bob")
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("Users", func() {
		It("looks users up by id and username", func() {
			got, err := db.Users().GetByID(ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Username).To(Equal("alice"))

			got, err = db.Users().GetByUsername(ctx, "bob")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(bob.ID))
		})

		It("rejects a duplicate username", func() {
			dup := &domain.User{ID: uuid.New(), Username: "alice", Email: "other@example.com"}
			Expect(db.Users().Create(ctx, dup)).To(MatchError(domain.ErrUserExists))
		})

		It("returns only known users from GetByIDs", func() {
			users, err := db.Users().GetByIDs(ctx, []uuid.UUID{alice.ID, uuid.New()})
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(1))
			Expect(users).To(HaveKey(alice.ID))
		})

		It("reports a missing user as not found", func() {
			_, err := db.Users().GetByID(ctx, uuid.New())
			Expect(err).To(MatchError(domain.ErrNotFound))
		})
	})

	Describe("Expenses", func() {
		var (
			expense *domain.Expense
			err     error
		)

		JustBeforeEach(func() {
			err = db.Expenses().Create(ctx, expense)
		})

		When("every participant exists", func() {
			BeforeEach(func() {
				expense = newExpense(alice, 1001, alice, bob)
			})

			It("assigns an id and the first version", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(expense.ID).NotTo(Equal(uuid.Nil))
				Expect(expense.Version).To(Equal(int64(1)))
			})

			It("round-trips the splits in order", func() {
				got, getErr := db.Expenses().GetByID(ctx, expense.ID)
				Expect(getErr).NotTo(HaveOccurred())
				Expect(got.Total).To(Equal(usd(1001)))
				Expect(got.Splits).To(HaveLen(2))
				Expect(got.Splits[0].UserID).To(Equal(alice.ID))
				Expect(got.Splits[0].Amount).To(Equal(usd(501)))
				Expect(got.Splits[1].Amount).To(Equal(usd(500)))
			})

			It("lists the expense for creator and participants only", func() {
				for _, u := range []*domain.User{alice, bob} {
					list, listErr := db.Expenses().ListForUser(ctx, u.ID)
					Expect(listErr).NotTo(HaveOccurred())
					Expect(list).To(HaveLen(1))
				}
				list, listErr := db.Expenses().ListForUser(ctx, uuid.New())
				Expect(listErr).NotTo(HaveOccurred())
				Expect(list).To(BeEmpty())
			})

			It("updates when the version matches and bumps it", func() {
				pct := decimal.RequireFromString("100")
				expense.SplitType = domain.SplitTypePercentage
				expense.Splits = []domain.ResolvedSplit{{UserID: bob.ID, Amount: usd(1001), Percentage: &pct}}

				Expect(db.Expenses().Update(ctx, expense)).To(Succeed())
				Expect(expense.Version).To(Equal(int64(2)))

				got, getErr := db.Expenses().GetByID(ctx, expense.ID)
				Expect(getErr).NotTo(HaveOccurred())
				Expect(got.Version).To(Equal(int64(2)))
				Expect(got.Splits).To(HaveLen(1))
				Expect(got.Splits[0].Percentage.String()).To(Equal("100"))

				list, listErr := db.Expenses().ListForUser(ctx, alice.ID)
				Expect(listErr).NotTo(HaveOccurred())
				Expect(list).To(HaveLen(1), "alice still created it")
			})

			It("rejects a stale version", func() {
				stale := *expense
				Expect(db.Expenses().Update(ctx, expense)).To(Succeed())
				Expect(db.Expenses().Update(ctx, &stale)).To(MatchError(domain.ErrVersionConflict))
			})

			It("deletes the expense and its splits", func() {
				Expect(db.Expenses().Delete(ctx, expense.ID)).To(Succeed())

				_, getErr := db.Expenses().GetByID(ctx, expense.ID)
				Expect(getErr).To(MatchError(domain.ErrNotFound))

				list, listErr := db.Expenses().ListForUser(ctx, bob.ID)
				Expect(listErr).NotTo(HaveOccurred())
				Expect(list).To(BeEmpty())

				Expect(db.Expenses().Delete(ctx, expense.ID)).To(MatchError(domain.ErrNotFound))
			})
		})

		When("a participant does not exist", func() {
			BeforeEach(func() {
				ghost := &domain.User{ID: uuid.New()}
				expense = newExpense(alice, 1000, alice, ghost)
			})

			It("refuses the write", func() {
				Expect(err).To(MatchError(domain.ErrParticipantNotFound))
				list, listErr := db.Expenses().ListForUser(ctx, alice.ID)
				Expect(listErr).NotTo(HaveOccurred())
				Expect(list).To(BeEmpty())
			})
		})
	})

	Describe("Idempotency", func() {
		var store *IdempotencyStore

		BeforeEach(func() {
			store = db.Idempotency()
		})

		pendingFor := func(key, hash string, userID uuid.UUID, ttl time.Duration) *repository.IdempotencyCacheEntry {
			now := time.Now().UTC()
			return &repository.IdempotencyCacheEntry{
				Key: key, UserID: userID, RequestHash: hash, CreatedAt: now, ExpiresAt: now.Add(ttl),
			}
		}

		It("reserves a key once", func() {
			Expect(store.Reserve(ctx, pendingFor("k1", "h1", alice.ID, time.Minute))).To(BeTrue())
			Expect(store.Reserve(ctx, pendingFor("k1", "h2", alice.ID, time.Minute))).To(BeFalse())

			got, err := store.Get(ctx, "k1", alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got.Pending()).To(BeTrue())
			Expect(got.RequestHash).To(Equal("h1"))
		})

		It("completes a reservation with the response", func() {
			pending := pendingFor("k1", "h1", alice.ID, time.Minute)
			Expect(store.Reserve(ctx, pending)).To(BeTrue())

			done := *pending
			done.StatusCode = 201
			done.Headers = map[string]string{"Location": "/api/v1/expenses/a"}
			done.ResponseBody = []byte(`{"success":true}`)
			done.ExpiresAt = time.Now().Add(time.Hour)
			Expect(store.Complete(ctx, &done)).To(Succeed())

			got, err := store.Get(ctx, "k1", alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Pending()).To(BeFalse())
			Expect(got.ResponseBody).To(Equal([]byte(`{"success":true}`)))
			Expect(got.Headers).To(HaveKeyWithValue("Location", "/api/v1/expenses/a"))

			again := done
			again.RequestHash = "h2"
			Expect(store.Complete(ctx, &again)).To(MatchError(domain.ErrNotFound))
		})

		It("releases only pending entries", func() {
			Expect(store.Reserve(ctx, pendingFor("k1", "h", alice.ID, time.Minute))).To(BeTrue())
			Expect(store.Release(ctx, "k1", alice.ID)).To(Succeed())
			Expect(store.Get(ctx, "k1", alice.ID)).To(BeNil())

			pending := pendingFor("k2", "h", alice.ID, time.Minute)
			Expect(store.Reserve(ctx, pending)).To(BeTrue())
			done := *pending
			done.StatusCode = 201
			Expect(store.Complete(ctx, &done)).To(Succeed())
			Expect(store.Release(ctx, "k2", alice.ID)).To(Succeed())
			Expect(store.Get(ctx, "k2", alice.ID)).NotTo(BeNil())
		})

		It("lets exactly one concurrent reservation win", func() {
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins int
			)
			for range 8 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					ok, err := store.Reserve(ctx, pendingFor("race", "h", alice.ID, time.Minute))
					Expect(err).NotTo(HaveOccurred())
					if ok {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			Expect(wins).To(Equal(1))
		})

		It("scopes keys per user", func() {
			Expect(store.Reserve(ctx, pendingFor("shared", "h", alice.ID, time.Minute))).To(BeTrue())

			got, err := store.Get(ctx, "shared", bob.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
			Expect(store.Reserve(ctx, pendingFor("shared", "h", bob.ID, time.Minute))).To(BeTrue())
		})

		It("hides, takes over and cleans expired entries", func() {
			Expect(store.Reserve(ctx, pendingFor("old", "h1", alice.ID, -time.Minute))).To(BeTrue())

			got, err := store.Get(ctx, "old", alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())

			Expect(store.Reserve(ctx, pendingFor("old", "h2", alice.ID, time.Minute))).To(BeTrue())
			Expect(store.Reserve(ctx, pendingFor("stale", "h", alice.ID, -time.Minute))).To(BeTrue())

			n, err := store.CleanExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
			Expect(store.Get(ctx, "old", alice.ID)).NotTo(BeNil())
		})
	})

	Describe("PingContext", func() {
		It("fails once the file is closed", func() {
			Expect(db.PingContext(ctx)).To(Succeed())
			Expect(db.Close()).To(Succeed())
			Expect(db.PingContext(ctx)).To(MatchError(domain.ErrStoreUnavailable))
			db = nil
		})
	})
})
