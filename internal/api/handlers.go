package api

import (
	"encoding/json"
	"net/http"

	"github.com/codescope-io/codescope/pkg/models"
)

type scanRequest struct {
	ServiceIDs   []string        `json:"serviceIds"`
	ServiceID    string          `json:"serviceId"`
	Kind         models.ScanKind `json:"kind"`
	CheckItemIDs []string        `json:"checkItemIds"`
}

// handleStartScan accepts both single and batch requests: a lone serviceId is
// treated as a batch of one.
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	serviceIDs := req.ServiceIDs
	if len(serviceIDs) == 0 && req.ServiceID != "" {
		serviceIDs = []string{req.ServiceID}
	}

	scan, err := s.engine.StartBatchScan(r.Context(), serviceIDs, req.Kind, req.CheckItemIDs)
	if err != nil {
		fail(w, err)
		return
	}
	created(w, "scan started", scan)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	scans, err := s.engine.ListScans(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "scans", scans)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scan, err := s.engine.GetScan(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "scan", scan)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.engine.GetProgress(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "progress", progress)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.engine.ListTasks(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "tasks", tasks)
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	issues, err := s.engine.GetIssues(r.Context(), r.PathValue("id"), q.Get("category"), q.Get("severity"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "issues", issues)
}

func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	scan, err := s.engine.CancelScan(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "scan cancelled", scan)
}

func (s *Server) handleListVulnerabilities(w http.ResponseWriter, r *http.Request) {
	vulns, err := s.engine.GetVulnerabilities(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "vulnerabilities", vulns)
}

func (s *Server) handleListDependencies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	deps, err := s.engine.ListDependencies(r.Context(), q.Get("serviceId"), q.Get("scanId"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "dependencies", deps)
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	ok(w, "services", s.registry.ListServices())
}

func (s *Server) handleLatestScan(w http.ResponseWriter, r *http.Request) {
	kind := models.ScanKind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		badRequest(w, "query parameter kind must be security or quality")
		return
	}
	scan, err := s.engine.LatestScan(r.Context(), r.PathValue("id"), kind)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "latest scan", scan)
}

func (s *Server) handleCatalogTree(w http.ResponseWriter, r *http.Request) {
	ok(w, "check catalog", s.catalog.Tree())
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var group models.CheckGroup
	if err := json.NewDecoder(r.Body).Decode(&group); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	out, err := s.catalog.CreateGroup(group)
	if err != nil {
		fail(w, err)
		return
	}
	created(w, "group created", out)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var item models.CheckItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	out, err := s.catalog.CreateItem(r.PathValue("id"), item)
	if err != nil {
		fail(w, err)
		return
	}
	created(w, "item created", out)
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PromptTemplate string `json:"promptTemplate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	item, err := s.catalog.UpdatePromptTemplate(r.PathValue("id"), body.PromptTemplate)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "prompt updated", item)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteGroup(r.PathValue("id")); err != nil {
		fail(w, err)
		return
	}
	ok(w, "group deleted", nil)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteItem(r.PathValue("id")); err != nil {
		fail(w, err)
		return
	}
	ok(w, "item deleted", nil)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ok(w, "healthy", map[string]string{"version": s.version})
}
