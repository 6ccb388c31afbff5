package rbac_test

import (
	"testing"

	"github.com/aegis-admin/aegis/internal/rbac"
)

func TestBuildMenuTreeNestsAndSorts(t *testing.T) {
	perms := []rbac.Permission{
		{ID: 1, Name: "System", Type: rbac.TypeMenu, Sort: 2},
		{ID: 2, ParentID: 1, Name: "Roles", Type: rbac.TypeMenu, Sort: 2},
		{ID: 3, ParentID: 1, Name: "Users", Type: rbac.TypeMenu, Sort: 1},
		{ID: 4, Name: "Dashboard", Type: rbac.TypeMenu, Sort: 1},
		{ID: 5, ParentID: 1, Name: "Create role", Type: rbac.TypeButton},
	}

	menus := rbac.BuildMenuTree(perms)
	if len(menus) != 2 {
		t.Fatalf("expected two roots, got %d", len(menus))
	}
	if menus[0].Name != "Dashboard" || menus[1].Name != "System" {
		t.Fatalf("roots out of sort order: %q, %q", menus[0].Name, menus[1].Name)
	}

	system := menus[1]
	if len(system.Children) != 2 {
		t.Fatalf("expected two children under System, got %d", len(system.Children))
	}
	if system.Children[0].Name != "Users" || system.Children[1].Name != "Roles" {
		t.Fatalf("children out of sort order: %q, %q", system.Children[0].Name, system.Children[1].Name)
	}
	for _, child := range system.Children {
		if child.Name == "Create role" {
			t.Fatalf("BUTTON entry leaked into the tree")
		}
	}
}

func TestBuildMenuTreeOrphanBecomesRoot(t *testing.T) {
	perms := []rbac.Permission{
		{ID: 7, ParentID: 99, Name: "Detached", Type: rbac.TypeMenu},
	}

	menus := rbac.BuildMenuTree(perms)
	if len(menus) != 1 || menus[0].Name != "Detached" {
		t.Fatalf("expected the orphan to surface as a root, got %v", menus)
	}
}

func TestBuildMenuTreeAllButtons(t *testing.T) {
	perms := []rbac.Permission{
		{ID: 1, Name: "Create", Type: rbac.TypeButton},
		{ID: 2, Name: "Delete", Type: rbac.TypeButton},
	}

	if menus := rbac.BuildMenuTree(perms); len(menus) != 0 {
		t.Fatalf("expected an empty tree, got %v", menus)
	}
}
