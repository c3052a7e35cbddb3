package api

import (
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/service"
)

const dateLayout = "2006-01-02"

type userResponse struct {
	UserID   models.ParticipantID `json:"user_id"`
	FullName string               `json:"full_name"`
	Email    string               `json:"email,omitempty"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{UserID: u.UserID, FullName: u.FullName, Email: u.Email}
}

type lineItemResponse struct {
	LineID       int64                `json:"line_id"`
	ReceiptID    string               `json:"receipt_id,omitempty"`
	StoreName    string               `json:"store_name,omitempty"`
	PurchaseDate string               `json:"purchase_date,omitempty"`
	ItemName     string               `json:"item_name"`
	Price        string               `json:"price"`
	PaidBy       models.ParticipantID `json:"paid_by,omitempty"`
}

func toLineItemResponse(item models.LineItem) lineItemResponse {
	resp := lineItemResponse{
		LineID:    item.LineID,
		ReceiptID: item.ReceiptID,
		StoreName: item.StoreName,
		ItemName:  item.ItemName,
		Price:     item.Price.StringFixed(2),
		PaidBy:    item.PaidBy,
	}
	if !item.PurchaseDate.IsZero() {
		resp.PurchaseDate = item.PurchaseDate.Format(dateLayout)
	}
	return resp
}

type assignmentResponse struct {
	MappingID int64                   `json:"mapping_id"`
	LineID    int64                   `json:"line_id"`
	UserID    models.ParticipantID    `json:"user_id"`
	Status    models.AssignmentStatus `json:"status"`
}

func toAssignmentResponse(a models.Assignment) assignmentResponse {
	return assignmentResponse{MappingID: a.MappingID, LineID: a.LineID, UserID: a.UserID, Status: a.Status}
}

type settlementResponse struct {
	SettlementID int64                `json:"settlement_id"`
	FromUserID   models.ParticipantID `json:"from_user_id"`
	ToUserID     models.ParticipantID `json:"to_user_id"`
	AmountCents  int64                `json:"amount_cents"`
	Amount       string               `json:"amount"`
	Date         string               `json:"date"`
	Note         string               `json:"note,omitempty"`
}

func toSettlementResponse(s models.Settlement) settlementResponse {
	return settlementResponse{
		SettlementID: s.SettlementID,
		FromUserID:   s.FromUserID,
		ToUserID:     s.ToUserID,
		AmountCents:  s.AmountCents,
		Amount:       money.Format(s.AmountCents),
		Date:         s.CreatedAt.Format(dateLayout),
		Note:         s.Note,
	}
}

type settlementResultResponse struct {
	Settlement settlementResponse `json:"settlement"`
	MarkedPaid []int64            `json:"marked_paid"`
}

type edgeResponse struct {
	service.EdgeView
	Amount string `json:"amount"`
}

type memberResponse struct {
	service.MemberView
	Net string `json:"net"`
}

type balancesResponse struct {
	Edges            []edgeResponse   `json:"edges"`
	Members          []memberResponse `json:"members"`
	Outstanding      string           `json:"outstanding"`
	OutstandingCents int64            `json:"outstanding_cents"`
}

func toBalancesResponse(s *service.BalanceSummary) balancesResponse {
	resp := balancesResponse{
		Edges:            make([]edgeResponse, 0, len(s.Edges)),
		Members:          make([]memberResponse, 0, len(s.Members)),
		Outstanding:      money.Format(s.OutstandingCents),
		OutstandingCents: s.OutstandingCents,
	}
	for _, e := range s.Edges {
		resp.Edges = append(resp.Edges, edgeResponse{EdgeView: e, Amount: money.Format(e.AmountCents)})
	}
	for _, m := range s.Members {
		resp.Members = append(resp.Members, memberResponse{MemberView: m, Net: money.Format(m.NetCents)})
	}
	return resp
}
