//go:build integration

package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/worktime-backend-go/internal/testutil/testdb"
)

var testDB *testdb.Handle

func TestMain(m *testing.M) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to start test database:", err)
		os.Exit(1)
	}
	testDB = h

	code := m.Run()
	h.Close()
	os.Exit(code)
}
