package ml

import (
	"context"
	"testing"
)

func sampleTree(t *testing.T) *RegressionTree {
	t.Helper()
	// horsepower <= 120 ? (curbweight <= 2400 ? 7000 : 11000) : 25000
	tree, err := NewRegressionTree([]TreeNode{
		{FeatureIdx: 2, Threshold: 120, LeftChild: 1, RightChild: 4},
		{FeatureIdx: 1, Threshold: 2400, LeftChild: 2, RightChild: 3},
		{IsLeaf: true, Value: 7000},
		{IsLeaf: true, Value: 11000},
		{IsLeaf: true, Value: 25000},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tree
}

func TestRegressionTreePredict(t *testing.T) {
	p := NewPredictor(sampleTree(t))

	tests := []struct {
		name string
		in   Features
		want float64
	}{
		{name: "light and weak", in: Features{HighwayMPG: 38, Curbweight: 2000, Horsepower: 70}, want: 7000},
		{name: "heavy and weak", in: Features{HighwayMPG: 30, Curbweight: 2500, Horsepower: 100}, want: 11000},
		{name: "strong", in: Features{HighwayMPG: 22, Curbweight: 3500, Horsepower: 200}, want: 25000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Predict(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewRegressionTreeRejectsBadNodes(t *testing.T) {
	tests := []struct {
		name  string
		nodes []TreeNode
	}{
		{name: "empty", nodes: nil},
		{name: "feature out of range", nodes: []TreeNode{{FeatureIdx: 3, LeftChild: 1, RightChild: 2}, {IsLeaf: true}, {IsLeaf: true}}},
		{name: "child points backwards", nodes: []TreeNode{{FeatureIdx: 0, LeftChild: 0, RightChild: 1}, {IsLeaf: true}}},
		{name: "child out of range", nodes: []TreeNode{{FeatureIdx: 0, LeftChild: 1, RightChild: 5}, {IsLeaf: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegressionTree(tt.nodes); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
