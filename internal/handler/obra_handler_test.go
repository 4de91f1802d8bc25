package handler_test

import (
	"net/http"
	"testing"

	"github.com/jmoka/minhas-obras-sub000/internal/db"
)

func TestShowHomeAttachesViewCounts(t *testing.T) {
	engine, gdb, cleanup := setupAppTest(t)
	defer cleanup()

	popular := seedObra(t, gdb, "popular")
	quieta := seedObra(t, gdb, "quieta")

	for _, session := range []string{"s1", "s2", "s3"} {
		view := &db.ObraView{ObraID: popular.ID, SessionID: session}
		if err := gdb.Create(view).Error; err != nil {
			t.Fatalf("failed to seed view: %v", err)
		}
	}

	w, _ := doJSON(t, engine, http.MethodGet, "/", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	payload := decodeJSONBody(t, w)
	obras, _ := payload["obras"].([]any)
	if len(obras) != 2 {
		t.Fatalf("expected 2 obras, got %d", len(obras))
	}

	counts := make(map[float64]float64)
	for _, raw := range obras {
		item, _ := raw.(map[string]any)
		id, _ := item["id"].(float64)
		count, ok := item["view_count"].(float64)
		if !ok {
			t.Fatalf("expected view_count on obra %v, got %v", item["id"], item["view_count"])
		}
		counts[id] = count
	}

	if got := counts[float64(popular.ID)]; got != 3 {
		t.Fatalf("expected 3 views for popular obra, got %v", got)
	}
	if got := counts[float64(quieta.ID)]; got != 0 {
		t.Fatalf("expected 0 views for quiet obra, got %v", got)
	}
}

func TestListMyObrasAttachesViewCounts(t *testing.T) {
	engine, gdb, cleanup := setupAppTest(t)
	defer cleanup()

	cookies := registerUser(t, engine, "galerista")
	approveUser(t, gdb, "galerista")

	var owner db.User
	if err := gdb.Where("username = ?", "galerista").First(&owner).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}

	obra := &db.Obra{UserID: owner.ID, Title: "Minha", ImageURL: "/static/uploads/m.png", Status: "published"}
	if err := gdb.Create(obra).Error; err != nil {
		t.Fatalf("failed to seed obra: %v", err)
	}
	if err := gdb.Create(&db.ObraView{ObraID: obra.ID, SessionID: "s1"}).Error; err != nil {
		t.Fatalf("failed to seed view: %v", err)
	}

	w, _ := doJSON(t, engine, http.MethodGet, "/my-gallery", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	payload := decodeJSONBody(t, w)
	obras, _ := payload["obras"].([]any)
	if len(obras) != 1 {
		t.Fatalf("expected 1 obra, got %d", len(obras))
	}

	item, _ := obras[0].(map[string]any)
	if got, _ := item["view_count"].(float64); got != 1 {
		t.Fatalf("expected view_count 1, got %v", item["view_count"])
	}
}
