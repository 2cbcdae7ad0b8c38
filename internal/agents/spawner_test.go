package agents

import (
	"testing"

	"github.com/talgya/collapse-sim/internal/entropy"
)

func TestSpawner_InitialConditions(t *testing.T) {
	sp := NewSpawner(entropy.New(42), DefaultSpawnConfig())

	hh := sp.SpawnHouseholds(50)
	if len(hh) != 50 {
		t.Fatalf("households=%d want 50", len(hh))
	}
	for i, h := range hh {
		if h.ID != i {
			t.Fatalf("household %d has ID %d", i, h.ID)
		}
		if h.Members != 4 || len(h.Earners) != 2 || h.EmployedCount() != 2 {
			t.Fatalf("household %d: members=%d earners=%v", i, h.Members, h.Earners)
		}
		if h.Wealth != 10000 {
			t.Fatalf("household %d wealth=%v", i, h.Wealth)
		}
		if h.CostOfLiving < 200 || h.CostOfLiving >= 500 {
			t.Fatalf("household %d cost of living %v out of range", i, h.CostOfLiving)
		}
	}

	firms := sp.SpawnFirms(20)
	for i, f := range firms {
		if f.Employees < 50 || f.Employees > 150 {
			t.Fatalf("firm %d employees=%d", i, f.Employees)
		}
		if f.Capacity != 1000 || f.Inventory != 0 || f.Bankrupt {
			t.Fatalf("firm %d bad initial state: %+v", i, f)
		}
		if f.BaseWage < 60 || f.BaseWage >= 100 {
			t.Fatalf("firm %d wage=%v", i, f.BaseWage)
		}
	}

	gov := sp.NewGovernment()
	if gov.Budget != 100_000 || gov.FirmTaxRate != 0.15 || gov.HouseholdTaxRate != 0.10 {
		t.Fatalf("government initial state: %+v", gov)
	}
}

func TestSpawner_EarnersCappedAtMembers(t *testing.T) {
	cfg := DefaultSpawnConfig()
	cfg.Members = 1
	cfg.InitialEarners = 3
	h := NewSpawner(entropy.New(1), cfg).SpawnHouseholds(1)[0]
	if len(h.Earners) != 1 {
		t.Fatalf("earners=%d want 1", len(h.Earners))
	}
	if h.AddEarner(true) {
		t.Fatalf("AddEarner must refuse beyond member count")
	}
}

func TestHousehold_EmploymentRatio(t *testing.T) {
	h := &Household{Members: 4}
	if _, ok := h.EmploymentRatio(); ok {
		t.Fatalf("expected ok=false without slots")
	}
	h.Earners = []bool{true, false, true, true}
	if r, ok := h.EmploymentRatio(); !ok || r != 0.75 {
		t.Fatalf("ratio=%v ok=%v want 0.75", r, ok)
	}
}

func TestClampedMutations(t *testing.T) {
	h := &Household{Wealth: 30}
	h.DebitWealth(50)
	if h.Wealth != 0 {
		t.Fatalf("wealth=%v want 0", h.Wealth)
	}

	f := &Firm{Capacity: 7, Employees: 3, Inventory: 20}
	f.ScaleCapacity(0.7)
	f.ScaleEmployees(0.5)
	f.DrawInventory(60)
	if f.Capacity != 4 || f.Employees != 1 || f.Inventory != 0 {
		t.Fatalf("firm after scaling: %+v", f)
	}
}
