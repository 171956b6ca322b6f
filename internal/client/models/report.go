package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/healthkeeper/internal/common"
)

// Report is the body of a health report as submitted by an ASHA worker.
// It carries no identifiers assigned by the server.
type Report struct {
	PatientName     string `json:"patient_name"`
	Age             int    `json:"age"`
	Gender          string `json:"gender,omitempty"`
	Symptoms        string `json:"symptoms"`
	Severity        string `json:"severity"`
	WaterSource     string `json:"water_source"`
	TreatmentGiven  string `json:"treatment_given,omitempty"`
	State           string `json:"state"`
	District        string `json:"district"`
	Village         string `json:"village"`
	VillageID       int64  `json:"village_id,omitempty"`
	AshaWorkerID    int64  `json:"asha_worker_id"`
	DateOfReporting string `json:"date_of_reporting"`
}

// Validate checks the fields the create endpoint rejects when missing.
func (r Report) Validate() error {
	var missing []string
	if strings.TrimSpace(r.PatientName) == "" {
		missing = append(missing, "patient_name")
	}
	if r.Age < 0 {
		missing = append(missing, "age")
	}
	if strings.TrimSpace(r.DateOfReporting) == "" {
		missing = append(missing, "date_of_reporting")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", common.ErrIncorrectPayload, strings.Join(missing, ", "))
	}
	return nil
}

// HealthReport is a report known to the server, keyed by its remote id.
type HealthReport struct {
	ID int64 `json:"id"`
	Report
}

// UnmarshalJSON accepts the server id under either "id" or "report_id";
// the list and create endpoints disagree on the name.
func (h *HealthReport) UnmarshalJSON(b []byte) error {
	var body Report
	if err := json.Unmarshal(b, &body); err != nil {
		return err
	}
	var ids struct {
		ID       *int64 `json:"id"`
		ReportID *int64 `json:"report_id"`
	}
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}

	h.Report = body
	switch {
	case ids.ID != nil:
		h.ID = *ids.ID
	case ids.ReportID != nil:
		h.ID = *ids.ReportID
	default:
		h.ID = 0
	}
	return nil
}

// FillFromUser completes location and worker fields the server left empty
// with the values of the signed-in user.
func (h *HealthReport) FillFromUser(u *UserProfile) {
	if u == nil {
		return
	}
	if h.State == "" {
		h.State = u.State
	}
	if h.District == "" {
		h.District = u.District
	}
	if h.Village == "" {
		h.Village = u.Village
	}
	if h.AshaWorkerID == 0 {
		h.AshaWorkerID = u.UserID
	}
}
