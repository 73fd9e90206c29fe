package db

import (
	"context"
	"testing"
)

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx from empty context, got %v", tx)
	}
}

func TestTxFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), TxKey, "not a tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Errorf("expected nil for wrong type in context, got %v", tx)
	}
}
