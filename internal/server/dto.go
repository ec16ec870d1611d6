package server

import (
	"tenureline/internal/domain"
	"tenureline/internal/tenure"
)

type SummaryResponse struct {
	Orders       int            `json:"orders"`
	Officers     int            `json:"officers"`
	Tenures      int            `json:"tenures"`
	ErrorsByKind map[string]int `json:"errors_by_kind"`
}

type TenureResponse struct {
	TenureID       string            `json:"tenure_id"`
	OfficerID      string            `json:"officer_id"`
	PostID         string            `json:"post_id"`
	Role           string            `json:"role"`
	StartDate      string            `json:"start_date"`
	StartOrderID   string            `json:"start_order_id"`
	StartDetailIdx int               `json:"start_detail_idx"`
	EndDate        string            `json:"end_date,omitempty"`
	EndOrderID     string            `json:"end_order_id,omitempty"`
	EndDetailIdx   int               `json:"end_detail_idx"`
	ManagerIDs     []string          `json:"manager_ids,omitempty"`
	ReporteeIDs    []string          `json:"reportee_ids,omitempty"`
	AllOrderInfos  []domain.OrderRef `json:"all_order_infos"`
}

func tenureResponse(t domain.Tenure) TenureResponse {
	return TenureResponse{
		TenureID:       t.TenureID,
		OfficerID:      t.OfficerID,
		PostID:         t.PostID,
		Role:           t.Role,
		StartDate:      domain.FormatDate(t.StartDate),
		StartOrderID:   t.StartOrderID,
		StartDetailIdx: t.StartDetailIdx,
		EndDate:        domain.FormatDate(t.EndDate),
		EndOrderID:     t.EndOrderID,
		EndDetailIdx:   t.EndDetailIdx,
		ManagerIDs:     t.ManagerIDs,
		ReporteeIDs:    t.ReporteeIDs,
		AllOrderInfos:  t.AllOrderInfos,
	}
}

func mapTenures(items []domain.Tenure) []TenureResponse {
	res := make([]TenureResponse, 0, len(items))
	for _, t := range items {
		res = append(res, tenureResponse(t))
	}
	return res
}

type OrderResponse struct {
	OrderID  string               `json:"order_id"`
	Date     string               `json:"date"`
	Number   string               `json:"number,omitempty"`
	Category string               `json:"category"`
	Details  []domain.OrderDetail `json:"details"`
}

func orderResponse(o domain.Order) OrderResponse {
	return OrderResponse{
		OrderID:  o.OrderID,
		Date:     domain.FormatDate(o.Date),
		Number:   o.Number,
		Category: o.Category,
		Details:  o.Details,
	}
}

func mapOrders(items []domain.Order) []OrderResponse {
	res := make([]OrderResponse, 0, len(items))
	for _, o := range items {
		res = append(res, orderResponse(o))
	}
	return res
}

type OfficerResponse struct {
	OfficerID string `json:"officer_id"`
	Name      string `json:"name"`
	FullName  string `json:"full_name,omitempty"`
	Cadre     string `json:"cadre,omitempty"`
}

func officerResponse(o domain.Officer) OfficerResponse {
	return OfficerResponse{
		OfficerID: o.OfficerID,
		Name:      o.Name,
		FullName:  o.FullName,
		Cadre:     o.Cadre,
	}
}

func mapOfficers(items []domain.Officer) []OfficerResponse {
	res := make([]OfficerResponse, 0, len(items))
	for _, o := range items {
		res = append(res, officerResponse(o))
	}
	return res
}

type OfficerDetailResponse struct {
	Officer OfficerResponse  `json:"officer"`
	Tenures []TenureResponse `json:"tenures"`
}

type ErrorResponse struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func mapErrors(items []tenure.DataError) []ErrorResponse {
	res := make([]ErrorResponse, 0, len(items))
	for _, e := range items {
		res = append(res, ErrorResponse{Kind: e.Kind, Path: e.Path, Message: e.Message})
	}
	return res
}
