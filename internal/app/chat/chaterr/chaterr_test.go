package chaterr

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestFromMongo(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no documents", err: mongo.ErrNoDocuments, want: ErrNotFound},
		{name: "wrapped no documents", err: fmt.Errorf("find: %w", mongo.ErrNoDocuments), want: ErrNotFound},
		{name: "other", err: other, want: other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromMongo(tt.err)
			if !errors.Is(got, tt.want) && got != tt.want {
				t.Errorf("FromMongo(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
