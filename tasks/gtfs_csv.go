package tasks

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"reflect"

	"impuls.dev/impuls/resource"
)

// The *CSV types below mirror the teacher's parse package: one
// gocsv-tagged struct per GTFS file, decoded with resource.CSV and then
// flattened into a header→value map so the existing model.*FromGTFS
// functions (which already expect that shape) don't need to change.
// Every field is a string; type conversion and validation stays in the
// model package, where it already lives.

type agencyCSV struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
	Lang     string `csv:"agency_lang"`
	Phone    string `csv:"agency_phone"`
	FareURL  string `csv:"agency_fare_url"`
}

type feedInfoCSV struct {
	PublisherName string `csv:"feed_publisher_name"`
	PublisherURL  string `csv:"feed_publisher_url"`
	Lang          string `csv:"feed_lang"`
	Version       string `csv:"feed_version"`
	ContactEmail  string `csv:"feed_contact_email"`
	ContactURL    string `csv:"feed_contact_url"`
}

type attributionCSV struct {
	ID               string `csv:"attribution_id"`
	OrganizationName string `csv:"organization_name"`
	IsProducer       string `csv:"is_producer"`
	IsOperator       string `csv:"is_operator"`
	IsAuthority      string `csv:"is_authority"`
	IsDataSource     string `csv:"is_data_source"`
	URL              string `csv:"attribution_url"`
	Email            string `csv:"attribution_email"`
	Phone            string `csv:"attribution_phone"`
}

type calendarCSV struct {
	ServiceID string `csv:"service_id"`
	Monday    string `csv:"monday"`
	Tuesday   string `csv:"tuesday"`
	Wednesday string `csv:"wednesday"`
	Thursday  string `csv:"thursday"`
	Friday    string `csv:"friday"`
	Saturday  string `csv:"saturday"`
	Sunday    string `csv:"sunday"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Desc      string `csv:"desc"`
}

type calendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType string `csv:"exception_type"`
}

type routeCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Type      string `csv:"route_type"`
	Color     string `csv:"route_color"`
	TextColor string `csv:"route_text_color"`
	SortOrder string `csv:"route_sort_order"`
}

type shapePointCSV struct {
	ShapeID    string `csv:"shape_id"`
	Sequence   string `csv:"shape_pt_sequence"`
	Lat        string `csv:"shape_pt_lat"`
	Lon        string `csv:"shape_pt_lon"`
	DistTravel string `csv:"shape_dist_traveled"`
}

type shapeIDCSV struct {
	ShapeID string `csv:"shape_id"`
}

type stopCSV struct {
	ID                 string `csv:"stop_id"`
	Name               string `csv:"stop_name"`
	Lat                string `csv:"stop_lat"`
	Lon                string `csv:"stop_lon"`
	Code               string `csv:"stop_code"`
	ZoneID             string `csv:"zone_id"`
	LocationType       string `csv:"location_type"`
	ParentStation      string `csv:"parent_station"`
	WheelchairBoarding string `csv:"wheelchair_boarding"`
	PlatformCode       string `csv:"platform_code"`
	PkpplkCode         string `csv:"pkpplk_code"`
	IbnrCode           string `csv:"ibnr_code"`
}

type transferCSV struct {
	FromStopID      string `csv:"from_stop_id"`
	ToStopID        string `csv:"to_stop_id"`
	FromRouteID     string `csv:"from_route_id"`
	ToRouteID       string `csv:"to_route_id"`
	FromTripID      string `csv:"from_trip_id"`
	ToTripID        string `csv:"to_trip_id"`
	TransferType    string `csv:"transfer_type"`
	MinTransferTime string `csv:"min_transfer_time"`
}

type tripCSV struct {
	ID                   string `csv:"trip_id"`
	RouteID              string `csv:"route_id"`
	ServiceID            string `csv:"service_id"`
	Headsign             string `csv:"trip_headsign"`
	ShortName            string `csv:"trip_short_name"`
	DirectionID          string `csv:"direction_id"`
	BlockID              string `csv:"block_id"`
	ShapeID              string `csv:"shape_id"`
	WheelchairAccessible string `csv:"wheelchair_accessible"`
	BikesAllowed         string `csv:"bikes_allowed"`
	Exceptional          string `csv:"exceptional"`
}

type stopTimeCSV struct {
	TripID            string `csv:"trip_id"`
	StopID            string `csv:"stop_id"`
	StopSequence      string `csv:"stop_sequence"`
	ArrivalTime       string `csv:"arrival_time"`
	DepartureTime     string `csv:"departure_time"`
	Headsign          string `csv:"stop_headsign"`
	PickupType        string `csv:"pickup_type"`
	DropOffType       string `csv:"drop_off_type"`
	ShapeDistTraveled string `csv:"shape_dist_traveled"`
}

type frequencyCSV struct {
	TripID      string `csv:"trip_id"`
	StartTime   string `csv:"start_time"`
	EndTime     string `csv:"end_time"`
	HeadwaySecs string `csv:"headway_secs"`
	ExactTimes  string `csv:"exact_times"`
}

type fareAttributeCSV struct {
	ID               string `csv:"fare_id"`
	Price            string `csv:"price"`
	CurrencyType     string `csv:"currency_type"`
	PaymentMethod    string `csv:"payment_method"`
	Transfers        string `csv:"transfers"`
	TransferDuration string `csv:"transfer_duration"`
	AgencyID         string `csv:"agency_id"`
}

type fareRuleCSV struct {
	FareID        string `csv:"fare_id"`
	RouteID       string `csv:"route_id"`
	OriginID      string `csv:"origin_id"`
	DestinationID string `csv:"destination_id"`
	ContainsID    string `csv:"contains_id"`
}

type translationCSV struct {
	TableName   string `csv:"table_name"`
	FieldName   string `csv:"field_name"`
	Lang        string `csv:"language"`
	Translation string `csv:"translation"`
	RecordID    string `csv:"record_id"`
	RecordSubID string `csv:"record_sub_id"`
	FieldValue  string `csv:"field_value"`
}

// structToRow flattens a gocsv-tagged struct of string fields into the
// header→value map model.*FromGTFS functions expect.
func structToRow(v interface{}) map[string]string {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()
	row := make(map[string]string, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("csv")
		if tag == "" || tag == "-" {
			continue
		}
		row[tag] = val.Field(i).String()
	}
	return row
}

// extractZipMember copies a zip member's content to a temporary file and
// wraps it as a resource.ManagedResource, so loadTable can decode it with
// the same resource.CSV helper Impuls uses for fetched resources instead
// of reading straight from the zip.Reader.
func extractZipMember(f *zip.File) (resource.ManagedResource, func(), error) {
	rc, err := f.Open()
	if err != nil {
		return resource.ManagedResource{}, func() {}, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "impuls-gtfs-member-*.csv")
	if err != nil {
		return resource.ManagedResource{}, func() {}, err
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return resource.ManagedResource{}, func() {}, fmt.Errorf("copying %s to temp file: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return resource.ManagedResource{}, func() {}, err
	}
	path := tmp.Name()
	return resource.ManagedResource{Path: path}, func() { os.Remove(path) }, nil
}
