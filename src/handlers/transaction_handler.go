package handlers

import (
	"net/http"
	"spendsage-server/src/services"
	"spendsage-server/src/util"

	"go.uber.org/zap"
)

const transactionNotFound = "Transaction not found"

func ListTransactions(transactions *services.TransactionService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		list, err := transactions.List(r.Context(), p)
		if err != nil {
			writeFailure(w, log, err, "Failed to retrieve transactions", transactionNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Transactions retrieved successfully", list)
	}
}

func GetTransaction(transactions *services.TransactionService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, transactionNotFound)
		if !ok {
			return
		}
		t, err := transactions.Get(r.Context(), p, id)
		if err != nil {
			writeFailure(w, log, err, "Failed to retrieve transaction", transactionNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Transaction retrieved successfully", t)
	}
}

func CreateTransaction(transactions *services.TransactionService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Failed to create transaction"
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		payload, ok := readPayload(w, r, failMsg)
		if !ok {
			return
		}
		in, err := services.BindTransaction(payload)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		t, err := transactions.Create(r.Context(), p, in)
		if err != nil {
			writeFailure(w, log, err, failMsg, transactionNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusCreated, "Transaction created successfully", t)
	}
}

func UpdateTransaction(transactions *services.TransactionService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Failed to update transaction"
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, transactionNotFound)
		if !ok {
			return
		}
		payload, ok := readPayload(w, r, failMsg)
		if !ok {
			return
		}
		in, err := services.BindTransaction(payload)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		t, err := transactions.Update(r.Context(), p, id, in)
		if err != nil {
			writeFailure(w, log, err, failMsg, transactionNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Transaction updated successfully", t)
	}
}

func DeleteTransaction(transactions *services.TransactionService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, transactionNotFound)
		if !ok {
			return
		}
		if err := transactions.Delete(r.Context(), p, id); err != nil {
			writeFailure(w, log, err, "Failed to delete transaction", transactionNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Transaction deleted successfully", nil)
	}
}
