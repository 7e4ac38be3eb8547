package handlers

import (
	"net/http"
	"spendsage-server/src/services"
	"spendsage-server/src/util"

	"go.uber.org/zap"
)

const budgetNotFound = "Budget not found"

func ListBudgets(budgets *services.BudgetService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		list, err := budgets.List(r.Context(), p)
		if err != nil {
			writeFailure(w, log, err, "Failed to retrieve budgets", budgetNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Budgets retrieved successfully", list)
	}
}

func GetBudget(budgets *services.BudgetService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, budgetNotFound)
		if !ok {
			return
		}
		b, err := budgets.Get(r.Context(), p, id)
		if err != nil {
			writeFailure(w, log, err, "Failed to retrieve budget", budgetNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Budget retrieved successfully", b)
	}
}

func CreateBudget(budgets *services.BudgetService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Failed to create budget"
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		payload, ok := readPayload(w, r, failMsg)
		if !ok {
			return
		}
		in, err := services.BindBudget(payload)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		b, err := budgets.Create(r.Context(), p, in)
		if err != nil {
			writeFailure(w, log, err, failMsg, budgetNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusCreated, "Budget created successfully", b)
	}
}

func UpdateBudget(budgets *services.BudgetService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Failed to update budget"
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, budgetNotFound)
		if !ok {
			return
		}
		payload, ok := readPayload(w, r, failMsg)
		if !ok {
			return
		}
		in, err := services.BindBudget(payload)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		b, err := budgets.Update(r.Context(), p, id, in)
		if err != nil {
			writeFailure(w, log, err, failMsg, budgetNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Budget updated successfully", b)
	}
}

func DeleteBudget(budgets *services.BudgetService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, budgetNotFound)
		if !ok {
			return
		}
		if err := budgets.Delete(r.Context(), p, id); err != nil {
			writeFailure(w, log, err, "Failed to delete budget", budgetNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Budget deleted successfully", nil)
	}
}
