package web

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lblod/verenigingen-harvester/internal/ledger"
	"github.com/lblod/verenigingen-harvester/internal/support/logger"
)

const statusPredicate = "http://www.w3.org/ns/adms#status"

type deltaTerm struct {
	Value string `json:"value"`
}

type deltaTriple struct {
	Subject   deltaTerm `json:"subject"`
	Predicate deltaTerm `json:"predicate"`
	Object    deltaTerm `json:"object"`
}

type changeset struct {
	Inserts []deltaTriple `json:"inserts"`
}

// handleDelta receives delta notifications from the triplestore. Inserts
// moving a task to SCHEDULED trigger an asynchronous harvest run; everything
// else is ignored. The caller always gets an immediate acknowledgement,
// failures are only observable through the task status in the ledger.
func (s *Server) handleDelta(c echo.Context) error {
	var changesets []changeset
	if err := c.Bind(&changesets); err != nil {
		logger.Warnf("Received malformed delta body, ignoring: %v", err)
		return c.JSON(http.StatusOK, map[string]string{"message": "thanks for all the fish!"})
	}

	taskURIs := scheduledTaskURIs(changesets)
	if len(taskURIs) == 0 {
		logger.Debugf("Delta didn't contain scheduled harvest tasks, ignoring")
	} else {
		go s.runTasks(taskURIs)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "thanks for all the fish!"})
}

// scheduledTaskURIs extracts the distinct subjects of status-SCHEDULED
// inserts across all changesets.
func scheduledTaskURIs(changesets []changeset) []string {
	seen := make(map[string]struct{})
	var uris []string
	for _, cs := range changesets {
		for _, insert := range cs.Inserts {
			if insert.Predicate.Value != statusPredicate {
				continue
			}
			if insert.Object.Value != string(ledger.StatusScheduled) {
				continue
			}
			if _, dup := seen[insert.Subject.Value]; dup {
				continue
			}
			seen[insert.Subject.Value] = struct{}{}
			uris = append(uris, insert.Subject.Value)
		}
	}
	return uris
}

// runTasks drives the harvest for each scheduled task sequentially. Errors
// are logged; the ledger holds the authoritative failure state.
func (s *Server) runTasks(taskURIs []string) {
	ctx := context.Background()
	for _, uri := range taskURIs {
		if err := s.runner.RunCollectingTask(ctx, uri); err != nil {
			logger.Errorf("Harvest run for task %s failed: %v", uri, err)
		}
	}
}
