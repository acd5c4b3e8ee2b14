package lookup

import (
	"context"
	"log/slog"

	"github.com/tidwall/gjson"
)

const vehicleAPI = "vehicle"

type vehicleField struct {
	label string
	paths []string
}

var vehicleFields = []vehicleField{
	{"🔢 RC Number", []string{"rc_number"}},
	{"👤 Owner", []string{"owner_name"}},
	{"👪 Father's Name", []string{"father_name"}},
	{"🔁 Owner Serial", []string{"owner_serial_no"}},
	{"🏍️ Model", []string{"model_name"}},
	{"🧩 Variant", []string{"maker_model"}},
	{"🚦 Class", []string{"vehicle_class"}},
	{"⛽ Fuel", []string{"fuel_type"}},
	{"♻️ Norms", []string{"fuel_norms"}},
	{"🗓️ Reg Date", []string{"registration_date"}},
	{"🛡️ Insurance", []string{"insurance_company"}},
	{"🛡️ Insured Till", []string{"insurance_expiry", "insurance_upto"}},
	{"🏋️ Fitness", []string{"fitness_upto"}},
	{"📄 PUC", []string{"puc_upto"}},
	{"💸 Tax Paid Till", []string{"tax_upto"}},
	{"📍 RTO", []string{"rto"}},
	{"🏙️ City", []string{"city"}},
	{"🏠 Address", []string{"address"}},
	{"📞 Phone", []string{"phone"}},
}

// VehicleLookup resolves vehicle registration numbers.
type VehicleLookup struct {
	client   *Client
	endpoint string
	log      *slog.Logger
}

// NewVehicleLookup creates a lookup against the endpoint template.
func NewVehicleLookup(client *Client, endpoint string, log *slog.Logger) *VehicleLookup {
	if log == nil {
		log = slog.Default()
	}
	return &VehicleLookup{client: client, endpoint: endpoint, log: log}
}

// Lookup queries the registration number with one retry. A failed call still
// renders the card with every field set to NA.
func (v *VehicleLookup) Lookup(ctx context.Context, rc string) (*Result, error) {
	doc, err := v.client.GetJSON(ctx, vehicleAPI, Expand(v.endpoint, rc), 2)
	if err != nil {
		v.log.Warn("vehicle lookup degraded", slog.String("query", rc), slog.Any("error", err))
		doc = gjson.Result{}
	}

	return &Result{Text: renderVehicle(doc)}, nil
}

func renderVehicle(doc gjson.Result) string {
	lines := make([]line, 0, len(vehicleFields))
	for _, f := range vehicleFields {
		lines = append(lines, line{label: f.label, value: field(doc, NA, f.paths...)})
	}
	return renderLines("🚘 Vehicle RC Info:", lines, "")
}
