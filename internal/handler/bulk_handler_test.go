package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-sarthi/placement-api/internal/models"
)

type fakeBulk struct {
	stages []models.Stage
	req    models.BulkTransitionRequest
}

func (f *fakeBulk) Transition(_ context.Context, stage models.Stage, req models.BulkTransitionRequest) (*models.BulkTransitionResult, error) {
	f.stages = append(f.stages, stage)
	f.req = req
	return &models.BulkTransitionResult{AdvancedCount: len(req.StudentAdmissionNumbers), NotFoundStudents: []string{}}, nil
}

func TestBulkHandlerRoutesStages(t *testing.T) {
	bulk := &fakeBulk{}
	auth := &fakeAuthorizer{}
	h := NewBulkHandler(bulk, auth)
	body := []byte(`{"eventId":"EV1","studentAdmissionNumbers":["A1","A2"],"stageLink":"https://oa.example.com/t/1"}`)

	for _, call := range []func(c *gin.Context){h.SendOALinks, h.ScheduleInterviews, h.FinalSelection} {
		c, w := newGinContext(http.MethodPost, "/bulk", body)
		withClaims(c, models.RoleCompany, "c1")
		call(c)
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, []models.Stage{models.StageOA, models.StageInterview, models.StageFinalSelection}, bulk.stages)
	assert.Equal(t, []string{"EV1", "EV1", "EV1"}, auth.calls)
	assert.Equal(t, []string{"A1", "A2"}, bulk.req.StudentAdmissionNumbers)
}

func TestBulkHandlerRejectsMalformedBody(t *testing.T) {
	bulk := &fakeBulk{}
	h := NewBulkHandler(bulk, &fakeAuthorizer{})

	c, w := newGinContext(http.MethodPost, "/bulk/send-oa-links", []byte(`{"eventId":`))
	withClaims(c, models.RoleAdmin, "")
	h.SendOALinks(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, bulk.stages)
}
