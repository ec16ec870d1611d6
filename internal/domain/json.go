package domain

import (
	"encoding/json"
	"fmt"
)

// JSON wrappers: dates travel as YYYY-MM-DD strings on the wire, the zero
// time as "".

type orderJSON struct {
	OrderID  string        `json:"order_id"`
	Date     string        `json:"date"`
	Number   string        `json:"number,omitempty"`
	Category string        `json:"category"`
	Details  []OrderDetail `json:"details"`
}

func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{
		OrderID:  o.OrderID,
		Date:     FormatDate(o.Date),
		Number:   o.Number,
		Category: o.Category,
		Details:  o.Details,
	})
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var raw orderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return fmt.Errorf("order %s: invalid date %q: %w", raw.OrderID, raw.Date, err)
	}
	o.OrderID = raw.OrderID
	o.Date = date
	o.Number = raw.Number
	o.Category = raw.Category
	o.Details = raw.Details
	return nil
}

type tenureJSON struct {
	TenureID       string     `json:"tenure_id"`
	OfficerID      string     `json:"officer_id"`
	PostID         string     `json:"post_id"`
	Role           string     `json:"role"`
	StartDate      string     `json:"start_date"`
	StartOrderID   string     `json:"start_order_id"`
	StartDetailIdx int        `json:"start_detail_idx"`
	EndDate        string     `json:"end_date"`
	EndOrderID     string     `json:"end_order_id"`
	EndDetailIdx   int        `json:"end_detail_idx"`
	ManagerIDs     []string   `json:"manager_ids,omitempty"`
	ReporteeIDs    []string   `json:"reportee_ids,omitempty"`
	AllOrderInfos  []OrderRef `json:"all_order_infos"`
}

func (t Tenure) MarshalJSON() ([]byte, error) {
	return json.Marshal(tenureJSON{
		TenureID:       t.TenureID,
		OfficerID:      t.OfficerID,
		PostID:         t.PostID,
		Role:           t.Role,
		StartDate:      FormatDate(t.StartDate),
		StartOrderID:   t.StartOrderID,
		StartDetailIdx: t.StartDetailIdx,
		EndDate:        FormatDate(t.EndDate),
		EndOrderID:     t.EndOrderID,
		EndDetailIdx:   t.EndDetailIdx,
		ManagerIDs:     t.ManagerIDs,
		ReporteeIDs:    t.ReporteeIDs,
		AllOrderInfos:  t.AllOrderInfos,
	})
}

func (t *Tenure) UnmarshalJSON(data []byte) error {
	var raw tenureJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := ParseDate(raw.StartDate)
	if err != nil {
		return fmt.Errorf("tenure %s: invalid start_date %q: %w", raw.TenureID, raw.StartDate, err)
	}
	end, err := ParseDate(raw.EndDate)
	if err != nil {
		return fmt.Errorf("tenure %s: invalid end_date %q: %w", raw.TenureID, raw.EndDate, err)
	}
	t.TenureID = raw.TenureID
	t.OfficerID = raw.OfficerID
	t.PostID = raw.PostID
	t.Role = raw.Role
	t.StartDate = start
	t.StartOrderID = raw.StartOrderID
	t.StartDetailIdx = raw.StartDetailIdx
	t.EndDate = end
	t.EndOrderID = raw.EndOrderID
	t.EndDetailIdx = raw.EndDetailIdx
	t.ManagerIDs = raw.ManagerIDs
	t.ReporteeIDs = raw.ReporteeIDs
	t.AllOrderInfos = raw.AllOrderInfos
	return nil
}
