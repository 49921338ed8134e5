package pgstore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skosovsky/plantool/domain"
)

func TestEncodeColumns_NilStaysNull(t *testing.T) {
	c, err := encodeColumns(domain.PlanPatch{})
	require.NoError(t, err)
	assert.Nil(t, c.profile)
	assert.Nil(t, c.affordability)
	assert.Nil(t, c.target)
	assert.Nil(t, c.products)

	c, err = encodeColumns(domain.PlanPatch{
		Profile:  &domain.UserProfile{Age: 30, InvestType: domain.InvestStable},
		Target:   &domain.HousingTarget{Location: "서울특별시 마포구", Status: domain.TargetStatusInProgress},
		Products: map[domain.Category]domain.RankedProductSet{domain.CategoryFund: {{ID: "f1"}}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"age":30,"monthly_income":0,"invest_type":"stable"}`, string(c.profile))
	assert.Nil(t, c.affordability)
	assert.Contains(t, string(c.target), `"plan_status":"in_progress"`)
	assert.Contains(t, string(c.products), `"fund"`)
}

func TestDecodeColumns(t *testing.T) {
	var p domain.Plan
	err := decodeColumns(&p, columns{
		profile:  []byte(`{"age":41,"monthly_income":3000000,"invest_type":"balanced"}`),
		target:   []byte(`{"hope_location":"서울특별시 노원구","hope_price":400000000,"hope_housing_type":"아파트","initial_prop":0,"income_usage_ratio":30,"plan_status":"in_progress"}`),
		products: []byte(`{"saving":[{"id":"s1","bank_name":"국민은행","interest_rate":3.5,"term_months":12,"category":"saving"}]}`),
	})
	require.NoError(t, err)
	require.NotNil(t, p.Profile)
	assert.Equal(t, 41, p.Profile.Age)
	assert.Nil(t, p.Affordability)
	require.NotNil(t, p.Target)
	assert.Equal(t, 30, p.Target.IncomeUsageRatio)
	assert.Equal(t, "s1", p.SelectedProducts[domain.CategorySaving][0].ID)

	require.Error(t, decodeColumns(&p, columns{profile: []byte(`{`)}))
	require.Error(t, decodeColumns(&p, columns{target: []byte(`[`)}))
}

// openTestStore connects to PLAN_TEST_DATABASE_URL; tests are skipped without it.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("PLAN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PLAN_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, Config{URL: url, MaxConns: 4, AcquireTimeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestStore_PatchMerges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := "test-" + uuid.NewString()

	prof := domain.UserProfile{Age: 30, MonthlyIncome: 5_000_000, InvestType: domain.InvestStable}
	aff := domain.AffordabilityResult{LoanAmount: 300_000_000, DSRValue: 31.43, IsEligible: true}

	_, err := s.PatchPlan(ctx, id, domain.PlanPatch{Profile: &prof})
	require.NoError(t, err)
	_, err = s.PatchPlan(ctx, id, domain.PlanPatch{Products: map[domain.Category]domain.RankedProductSet{
		domain.CategoryDeposit: {{ID: "d1"}},
	}})
	require.NoError(t, err)
	_, err = s.PatchPlan(ctx, id, domain.PlanPatch{Products: map[domain.Category]domain.RankedProductSet{
		domain.CategoryFund: {{ID: "f1"}},
	}})
	require.NoError(t, err)
	target := domain.HousingTarget{Location: "서울특별시 마포구", Price: 500_000_000, Status: domain.TargetStatusInProgress}
	_, err = s.PatchPlan(ctx, id, domain.PlanPatch{Target: &target})
	require.NoError(t, err)
	got, err := s.PatchPlan(ctx, id, domain.PlanPatch{Affordability: &aff})
	require.NoError(t, err)

	require.NotNil(t, got.Profile)
	require.NotNil(t, got.Affordability)
	assert.Equal(t, prof, *got.Profile)
	assert.Equal(t, aff, *got.Affordability)
	assert.Len(t, got.SelectedProducts, 2)
	require.NotNil(t, got.Target)
	assert.Equal(t, target, *got.Target)

	stored, ok, err := s.GetPlan(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got.SessionID, stored.SessionID)
	assert.Equal(t, *got.Profile, *stored.Profile)
}

func TestStore_ConcurrentDisjointPatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := "test-" + uuid.NewString()
	prof := domain.UserProfile{Age: 50}
	aff := domain.AffordabilityResult{LoanAmount: 1}

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			_, err := s.PatchPlan(ctx, id, domain.PlanPatch{Profile: &prof})
			assert.NoError(t, err)
		})
		wg.Go(func() {
			_, err := s.PatchPlan(ctx, id, domain.PlanPatch{Affordability: &aff})
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	got, ok, err := s.GetPlan(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, got.Profile)
	assert.NotNil(t, got.Affordability)
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.GetPlan(context.Background(), "missing-"+uuid.NewString())
	require.NoError(t, err)
	assert.False(t, ok)
}
