package model

import "testing"

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	if err != nil {
		t.Fatal(err)
	}
	if d != (Date{2024, 3, 5}) {
		t.Fatalf("got %v", d)
	}
	if d.String() != "2024-03-05" {
		t.Fatalf("String() = %q", d.String())
	}
	d2, err := ParseDate("20240305")
	if err != nil {
		t.Fatal(err)
	}
	if d2 != d {
		t.Fatalf("GTFS form parsed to %v, want %v", d2, d)
	}
}

func TestDateArithmetic(t *testing.T) {
	d := Date{2024, 2, 28}
	if got := d.AddDays(1); got != (Date{2024, 2, 29}) {
		t.Fatalf("AddDays(1) = %v", got)
	}
	if got := d.AddDays(2); got != (Date{2024, 3, 1}) {
		t.Fatalf("AddDays(2) = %v", got)
	}
	if !d.Before(d.AddDays(1)) {
		t.Fatal("expected Before")
	}
}

func TestTimePointRoundTrip(t *testing.T) {
	tp, err := ParseTimePoint("25:30:15")
	if err != nil {
		t.Fatal(err)
	}
	if tp.Seconds != 25*3600+30*60+15 {
		t.Fatalf("Seconds = %d", tp.Seconds)
	}
	if tp.String() != "25:30:15" {
		t.Fatalf("String() = %q", tp.String())
	}
}

func TestDateRangeBoundedDates(t *testing.T) {
	r := BoundedDateRange(Date{2024, 1, 1}, Date{2024, 1, 3})
	dates := r.Dates()
	want := []Date{{2024, 1, 1}, {2024, 1, 2}, {2024, 1, 3}}
	if len(dates) != len(want) {
		t.Fatalf("got %v", dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("dates[%d] = %v, want %v", i, dates[i], want[i])
		}
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d", r.Len())
	}
}

func TestDateRangeEmptyWhenInverted(t *testing.T) {
	r := BoundedDateRange(Date{2024, 1, 3}, Date{2024, 1, 1})
	if r.Kind != DateRangeEmpty {
		t.Fatalf("expected empty range, got %v", r)
	}
}

func TestDateRangeIntersection(t *testing.T) {
	a := BoundedDateRange(Date{2024, 1, 1}, Date{2024, 1, 10})
	b := BoundedDateRange(Date{2024, 1, 5}, Date{2024, 1, 20})
	got := a.Intersection(b)
	want := BoundedDateRange(Date{2024, 1, 5}, Date{2024, 1, 10})
	if !got.equal(want) {
		t.Fatalf("Intersection = %v, want %v", got, want)
	}
}

func TestDateRangeUnionContiguous(t *testing.T) {
	a := BoundedDateRange(Date{2024, 1, 1}, Date{2024, 1, 10})
	b := BoundedDateRange(Date{2024, 1, 11}, Date{2024, 1, 20})
	got := a.Union(b)
	want := BoundedDateRange(Date{2024, 1, 1}, Date{2024, 1, 20})
	if !got.equal(want) {
		t.Fatalf("Union = %v, want %v", got, want)
	}
}

func TestDateRangeUnionDisjointPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for disjoint union")
		}
	}()
	a := BoundedDateRange(Date{2024, 1, 1}, Date{2024, 1, 5})
	b := BoundedDateRange(Date{2024, 2, 1}, Date{2024, 2, 5})
	a.Union(b)
}

func TestDateRangeDifferenceSplitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for split difference")
		}
	}()
	a := BoundedDateRange(Date{2024, 1, 1}, Date{2024, 1, 31})
	b := BoundedDateRange(Date{2024, 1, 10}, Date{2024, 1, 20})
	a.Difference(b)
}

func TestDateRangeDifferenceOneSide(t *testing.T) {
	a := BoundedDateRange(Date{2024, 1, 1}, Date{2024, 1, 31})
	b := RightUnboundedDateRange(Date{2024, 1, 15})
	got := a.Difference(b)
	want := BoundedDateRange(Date{2024, 1, 1}, Date{2024, 1, 14})
	if !got.equal(want) {
		t.Fatalf("Difference = %v, want %v", got, want)
	}
}

func TestDateRangeIsSubsetOf(t *testing.T) {
	inner := BoundedDateRange(Date{2024, 1, 5}, Date{2024, 1, 10})
	outer := BoundedDateRange(Date{2024, 1, 1}, Date{2024, 1, 31})
	if !inner.IsSubsetOf(outer) {
		t.Fatal("expected subset")
	}
	if outer.IsSubsetOf(inner) {
		t.Fatal("did not expect subset")
	}
}

func TestDateRangeWalkLeftUnboundedDescends(t *testing.T) {
	r := LeftUnboundedDateRange(Date{2024, 1, 3})
	var got []Date
	r.Walk(func(d Date) bool {
		got = append(got, d)
		return len(got) < 3
	})
	want := []Date{{2024, 1, 3}, {2024, 1, 2}, {2024, 1, 1}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
