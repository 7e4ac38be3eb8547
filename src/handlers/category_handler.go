package handlers

import (
	"net/http"
	"spendsage-server/src/services"
	"spendsage-server/src/util"

	"go.uber.org/zap"
)

const categoryNotFound = "Category not found"

func ListCategories(categories *services.CategoryService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		list, err := categories.List(r.Context(), p)
		if err != nil {
			writeFailure(w, log, err, "Failed to retrieve categories", categoryNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Categories retrieved successfully", list)
	}
}

func GetCategory(categories *services.CategoryService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, categoryNotFound)
		if !ok {
			return
		}
		c, err := categories.Get(r.Context(), p, id)
		if err != nil {
			writeFailure(w, log, err, "Failed to retrieve category", categoryNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Categories retrieved successfully", c)
	}
}

func CreateCategory(categories *services.CategoryService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Failed to create category"
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		payload, ok := readPayload(w, r, failMsg)
		if !ok {
			return
		}
		in, err := services.BindCategory(payload)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		c, err := categories.Create(r.Context(), p, in)
		if err != nil {
			writeFailure(w, log, err, failMsg, categoryNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusCreated, "Category created successfully", c)
	}
}

func UpdateCategory(categories *services.CategoryService, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Failed to update category"
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, categoryNotFound)
		if !ok {
			return
		}
		payload, ok := readPayload(w, r, failMsg)
		if !ok {
			return
		}
		in, err := services.BindCategory(payload)
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		c, err := categories.Update(r.Context(), p, id, in)
		if err != nil {
			writeFailure(w, log, err, failMsg, categoryNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Category updated successfully", c)
	}
}

func DeleteCategory(categories *services.CategoryService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, categoryNotFound)
		if !ok {
			return
		}
		if err := categories.Delete(r.Context(), p, id); err != nil {
			writeFailure(w, log, err, "Failed to delete category", categoryNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Category deleted successfully", nil)
	}
}
