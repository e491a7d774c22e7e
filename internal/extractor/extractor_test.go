package extractor

import (
	"reflect"
	"testing"

	"splitbill/internal/models"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []models.LineItem
	}{
		{
			name: "single valid line",
			text: "1 Nasi Goreng 25000",
			want: []models.LineItem{
				{Name: "Nasi Goreng", Price: 25000, Quantity: 1},
			},
		},
		{
			name: "thousand separator collapses to whole units",
			text: "2 Es Teh Manis 10.000",
			want: []models.LineItem{
				{Name: "Es Teh Manis", Price: 10000, Quantity: 2},
			},
		},
		{
			name: "comma separator collapses too",
			text: "1 Ayam Bakar 45,500",
			want: []models.LineItem{
				{Name: "Ayam Bakar", Price: 45500, Quantity: 1},
			},
		},
		{
			name: "address line dropped by noise keyword",
			text: "Jalan Sudirman No 5",
			want: nil,
		},
		{
			name: "noise match is case-insensitive",
			text: "1 SUB TOTAL 35000",
			want: nil,
		},
		{
			name: "no matching lines yields empty result",
			text: "Terima kasih\natas kunjungan anda\n====",
			want: nil,
		},
		{
			name: "short name rejected",
			text: "1 Es 5000",
			want: nil,
		},
		{
			name: "price token without digits rejected",
			text: "1 Teh Botol ..,",
			want: nil,
		},
		{
			name: "mixed text keeps only item lines",
			text: "Resto Sederhana\n" +
				"Jl. Melati 12\n" +
				"2 Es Teh Manis 10.000\n" +
				"\n" +
				"1 Nasi Goreng 25.000\n" +
				"Sub Total 35.000\n" +
				"Tax 11% 3.850\n" +
				"Total 40.600",
			want: []models.LineItem{
				{Name: "Es Teh Manis", Price: 10000, Quantity: 2},
				{Name: "Nasi Goreng", Price: 25000, Quantity: 1},
			},
		},
		{
			name: "surrounding whitespace trimmed",
			text: "   3 Mie Ayam 12.000   ",
			want: []models.LineItem{
				{Name: "Mie Ayam", Price: 12000, Quantity: 3},
			},
		},
		{
			name: "line without leading quantity dropped",
			text: "Nasi Goreng 25000",
			want: nil,
		},
	}

	ex := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestItemsIsRestartable(t *testing.T) {
	ex := New()
	seq := ex.Items("1 Nasi Goreng 25000\n2 Es Teh Manis 10.000")

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}

	if first, second := count(), count(); first != 2 || second != 2 {
		t.Errorf("sequence not restartable: first pass %d items, second pass %d", first, second)
	}
}

func TestItemsEarlyStop(t *testing.T) {
	ex := New()
	var got []models.LineItem
	for item := range ex.Items("1 Nasi Goreng 25000\n2 Es Teh Manis 10.000") {
		got = append(got, item)
		break
	}
	if len(got) != 1 || got[0].Name != "Nasi Goreng" {
		t.Errorf("early stop yielded %+v, want just Nasi Goreng", got)
	}
}

func TestWithKeywords(t *testing.T) {
	ex := WithKeywords([]string{"promo"})

	if got := ex.Extract("1 Promo Hemat 10000"); got != nil {
		t.Errorf("custom keyword not applied, got %+v", got)
	}

	// Default keywords no longer apply when replaced.
	got := ex.Extract("1 Tax Included Combo 10000")
	if len(got) != 1 {
		t.Fatalf("expected default keywords replaced, got %+v", got)
	}
}
