package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ruledomain "github.com/receiptorhq/receiptor/internal/rule/domain"
)

type ruleConditionBody struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type createRuleRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Conditions  []ruleConditionBody `json:"conditions"`
	Category    string              `json:"category"`
	Active      *bool               `json:"is_active"`
}

func (s *Server) CreateRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.ruleSvc.Create(c.Request.Context(), ruledomain.CreateRuleRequest{
		Name:        req.Name,
		Description: req.Description,
		Conditions:  toDomainConditions(req.Conditions),
		Category:    req.Category,
		Active:      req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) ListRules(c *gin.Context) {
	resp, err := s.ruleSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type updateRuleRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Conditions  []ruleConditionBody `json:"conditions"`
	Category    *string             `json:"category"`
	Active      *bool               `json:"is_active"`
}

func (s *Server) UpdateRule(c *gin.Context) {
	var req updateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updated, err := s.ruleSvc.Update(c.Request.Context(), ruledomain.UpdateRuleRequest{
		ID:          c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		Conditions:  toDomainConditions(req.Conditions),
		Category:    req.Category,
		Active:      req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (s *Server) TestRule(c *gin.Context) {
	report, err := s.ruleSvc.DryRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) RuleSuggestions(c *gin.Context) {
	suggestions, err := s.ruleSvc.Suggestions(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

func (s *Server) DeleteRule(c *gin.Context) {
	if err := s.ruleSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func toDomainConditions(conditions []ruleConditionBody) []ruledomain.Condition {
	if conditions == nil {
		return nil
	}
	out := make([]ruledomain.Condition, 0, len(conditions))
	for _, cond := range conditions {
		out = append(out, ruledomain.Condition{
			Field:    ruledomain.Field(cond.Field),
			Operator: ruledomain.Operator(cond.Operator),
			Value:    cond.Value,
		})
	}
	return out
}
