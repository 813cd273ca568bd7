package server

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/models"
	"swapscan/internal/store"
)

func seedPlain(t *testing.T, mem *store.Memory, coll string, doc bson.M) {
	t.Helper()
	if err := mem.InsertPlain(context.Background(), coll, doc); err != nil {
		t.Fatalf("seed %s: %v", coll, err)
	}
}

func TestLPContestsQuery(t *testing.T) {
	mem := store.NewMemory()
	profile := testContest()
	seedPlain(t, mem, profile.Collection(), bson.M{
		"user": "0x9", "block": int64(120000), "timestamp": testTime,
		"contest_value": d128("1234500"), "total_lp_value": d128("320"),
		"total_time_eligible": int64(2600000), "is_eligible": true,
	})
	seed(t, mem, models.CollUsers, 100, bson.M{"id": "0x9", "transaction_count": int64(4)})
	schema := testSchema(t, mem)

	// Stored contest values carry the 1e4 fixed-point factor.
	got := exec(t, schema, mem, `{ lpContests { user { id } block timestamp contestValue totalLpValue totalTimeEligible isEligible } }`)
	want := `{"lpContests":[{"user":{"id":"0x9"},"block":120000,"timestamp":1700000000,` +
		`"contestValue":"123.45","totalLpValue":"320","totalTimeEligible":2600000,"isEligible":true}]}`
	if got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}

func TestLPContestBlocksQuery(t *testing.T) {
	mem := store.NewMemory()
	profile := testContest()
	seedPlain(t, mem, profile.BlockCollection(), bson.M{
		"user": "0x9", "block": int64(119100), "timestamp": testTime,
		"contest_value": d128("750000"), "total_lp_value": d128("130"),
		"total_time_eligible": int64(7200), "is_eligible": false,
		"lp_token_balances": bson.M{"0xaa": d128("12")},
		"lp_values":         bson.M{"0xaa": d128("140")},
	})
	seedPlain(t, mem, profile.BlockCollection(), bson.M{
		"user": "0x9", "block": int64(119000), "timestamp": testTime.Add(-time.Hour),
		"contest_value": d128("500000"), "total_lp_value": d128("120"),
		"total_time_eligible": int64(3600), "is_eligible": false,
		"lp_token_balances": bson.M{"0xaa": d128("10")},
		"lp_values":         bson.M{"0xaa": d128("120.5")},
	})
	seedPlain(t, mem, profile.BlockCollection(), bson.M{
		"user": "0x8", "block": int64(119000), "timestamp": testTime,
		"contest_value": d128("90000"),
	})
	schema := testSchema(t, mem)

	got := exec(t, schema, mem, `{ lpContestBlocks(where: {user: "0x9"}, orderBy: "block") { block contestValue lpTokenBalances lpValues } }`)
	want := `{"lpContestBlocks":[` +
		`{"block":119000,"contestValue":"50","lpTokenBalances":{"0xaa":"10"},"lpValues":{"0xaa":"120.5"}},` +
		`{"block":119100,"contestValue":"75","lpTokenBalances":{"0xaa":"12"},"lpValues":{"0xaa":"140"}}]}`
	if got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}

func TestLPContestNFTRanks(t *testing.T) {
	mem := store.NewMemory()
	profile := testContest()
	for i := 0; i < 200; i++ {
		seedPlain(t, mem, profile.Collection(), bson.M{
			"user": fmt.Sprintf("0x%x", i+1), "is_eligible": true,
		})
	}
	for i := 0; i < 50; i++ {
		seedPlain(t, mem, profile.Collection(), bson.M{
			"user": fmt.Sprintf("0x%x", 1000+i), "is_eligible": false,
		})
	}
	schema := testSchema(t, mem)

	got := exec(t, schema, mem, `{ lpContestNftRanks { L1P1Start L1P1End L1P2Start L1P2End L1P3Start L1P3End L1P4Start L1P4End L1P5Start L1P5End } }`)
	want := `{"lpContestNftRanks":{"L1P1Start":11,"L1P1End":4,"L1P2Start":5,"L1P2End":20,` +
		`"L1P3Start":21,"L1P3End":50,"L1P4Start":51,"L1P4End":110,"L1P5Start":111,"L1P5End":200}}`
	if got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}

func TestLPContestPercentileUnknownUser(t *testing.T) {
	r := NewResolver(store.NewMemory(), testContest())
	_, err := r.LPContestPercentile(context.Background(), lpContestPercentileArgs{
		Where: contestWhere{User: "0x9"},
	})
	if err == nil {
		t.Fatal("no error for a user without a standing")
	}
}

func TestVolumeContest(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem, models.CollUsers, 100, bson.M{"id": "0x9", "transaction_count": int64(6)})
	// Week 1, eligible pool, over the weekly cap.
	seed(t, mem, models.CollSwaps, 100, bson.M{
		"transaction_hash": "0xt1", "log_index": int64(0), "timestamp": testTime,
		"pair_id": "0xaa", "to": "0x9", "amount_usd": d128("1500"),
	})
	// Week 2, stable pool, counted at half weight.
	seed(t, mem, models.CollSwaps, 101, bson.M{
		"transaction_hash": "0xt2", "log_index": int64(0),
		"timestamp": time.Date(2023, 11, 21, 0, 0, 0, 0, time.UTC),
		"pair_id":   "0xbb", "to": "0x9", "amount_usd": d128("800"),
	})
	// Ineligible pool and another user's swap stay out of the score.
	seed(t, mem, models.CollSwaps, 102, bson.M{
		"transaction_hash": "0xt3", "log_index": int64(0), "timestamp": testTime,
		"pair_id": "0xcc", "to": "0x9", "amount_usd": d128("999"),
	})
	seed(t, mem, models.CollSwaps, 103, bson.M{
		"transaction_hash": "0xt4", "log_index": int64(0), "timestamp": testTime,
		"pair_id": "0xaa", "to": "0x7", "amount_usd": d128("5000"),
	})
	schema := testSchema(t, mem)

	data := exec(t, schema, mem, `{ volumeContest(where: {user: "0x9", startDate: "2023-11-13"}) {
		user { id } totalContestVolume totalContestScore nftLevel
		weeks { id name startDt endDt volume score }
	} }`)

	var got struct {
		VolumeContest struct {
			User               struct{ ID string }
			TotalContestVolume string
			TotalContestScore  string
			NftLevel           int32
			Weeks              []struct {
				ID      int32
				Name    string
				StartDt int64
				EndDt   int64
				Volume  string
				Score   string
			}
		}
	}
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	vc := got.VolumeContest
	if vc.User.ID != "0x9" {
		t.Fatalf("user = %q", vc.User.ID)
	}
	if len(vc.Weeks) != 8 {
		t.Fatalf("weeks = %d, want 8", len(vc.Weeks))
	}

	w1 := vc.Weeks[0]
	if w1.ID != 1 || w1.Name != "week_1" {
		t.Fatalf("week 1 header = %d %q", w1.ID, w1.Name)
	}
	if w1.StartDt != 1699833600 || w1.EndDt != 1700438399 {
		t.Fatalf("week 1 window = [%d, %d]", w1.StartDt, w1.EndDt)
	}
	if w1.Volume != "1500" || w1.Score != "1000" {
		t.Fatalf("week 1 = volume %s score %s", w1.Volume, w1.Score)
	}

	w2 := vc.Weeks[1]
	if w2.StartDt != 1700438400 {
		t.Fatalf("week 2 start = %d", w2.StartDt)
	}
	if w2.Volume != "400" || w2.Score != "400" {
		t.Fatalf("week 2 = volume %s score %s", w2.Volume, w2.Score)
	}
	for _, w := range vc.Weeks[2:] {
		if w.Volume != "0" || w.Score != "0" {
			t.Fatalf("week %d = volume %s score %s, want empty", w.ID, w.Volume, w.Score)
		}
	}

	if vc.TotalContestVolume != "1900" || vc.TotalContestScore != "1400" {
		t.Fatalf("totals = volume %s score %s", vc.TotalContestVolume, vc.TotalContestScore)
	}
	if vc.NftLevel != 5 {
		t.Fatalf("nft level = %d, want 5", vc.NftLevel)
	}
}

func TestVolumeContestBadStartDate(t *testing.T) {
	r := NewResolver(store.NewMemory(), testContest())
	_, err := r.VolumeContest(context.Background(), volumeContestArgs{
		Where: volumeContestWhere{User: "0x9", StartDate: "13-11-2023"},
	})
	if err == nil {
		t.Fatal("no error for a malformed start date")
	}
}

func TestVolumeNFTLevel(t *testing.T) {
	cases := []struct {
		score string
		want  int32
	}{
		{"8001", 1},
		{"8000", 0},
		{"7999", 2},
		{"6000", 0},
		{"5999", 3},
		{"4000", 0},
		{"3999", 4},
		{"2000", 0},
		{"1999", 5},
		{"501", 5},
		{"500", 0},
		{"0", 0},
	}
	for _, tc := range cases {
		got := volumeNFTLevel(decimal.RequireFromString(tc.score))
		if got != tc.want {
			t.Errorf("level(%s) = %d, want %d", tc.score, got, tc.want)
		}
	}
}
