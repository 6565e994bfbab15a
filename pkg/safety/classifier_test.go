package safety

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, text string, labels []string) (string, float64, error) {
	args := m.Called(text, labels)
	return args.String(0), args.Get(1).(float64), args.Error(2)
}

func TestCachedClassifier_Classify(t *testing.T) {
	ctx := context.Background()

	t.Run("Cache Hit", func(t *testing.T) {
		mockClassifier := new(MockClassifier)
		cached := NewCachedClassifier(mockClassifier, 10, "test-model", nil)

		mockClassifier.On("Classify", "hello", Labels).Return("NONE", 0.95, nil).Once()

		label, score, err := cached.Classify(ctx, "hello", Labels)
		assert.NoError(t, err)
		assert.Equal(t, "NONE", label)
		assert.Equal(t, 0.95, score)

		label, score, err = cached.Classify(ctx, "hello", Labels)
		assert.NoError(t, err)
		assert.Equal(t, "NONE", label)
		assert.Equal(t, 0.95, score)

		mockClassifier.AssertExpectations(t)
		assert.Equal(t, 1, cached.verdicts.Len())
	})

	t.Run("Labels Are Part Of The Key", func(t *testing.T) {
		mockClassifier := new(MockClassifier)
		cached := NewCachedClassifier(mockClassifier, 10, "test-model", nil)

		mockClassifier.On("Classify", "hi", []string{"a", "b"}).Return("a", 0.9, nil).Once()
		mockClassifier.On("Classify", "hi", []string{"ab"}).Return("ab", 0.8, nil).Once()

		label, _, _ := cached.Classify(ctx, "hi", []string{"a", "b"})
		assert.Equal(t, "a", label)
		label, _, _ = cached.Classify(ctx, "hi", []string{"ab"})
		assert.Equal(t, "ab", label)

		mockClassifier.AssertExpectations(t)
	})

	t.Run("Errors Are Not Cached", func(t *testing.T) {
		mockClassifier := new(MockClassifier)
		cached := NewCachedClassifier(mockClassifier, 10, "test-model", nil)

		mockClassifier.On("Classify", "x", Labels).Return("", 0.0, errors.New("boom")).Once()
		mockClassifier.On("Classify", "x", Labels).Return("DRUGS", 0.9, nil).Once()

		_, _, err := cached.Classify(ctx, "x", Labels)
		assert.Error(t, err)
		label, _, err := cached.Classify(ctx, "x", Labels)
		assert.NoError(t, err)
		assert.Equal(t, "DRUGS", label)
		mockClassifier.AssertExpectations(t)
	})

	t.Run("Invalid Size Falls Back", func(t *testing.T) {
		cached := NewCachedClassifier(new(MockClassifier), 0, "test-model", nil)
		assert.NotNil(t, cached.verdicts)
	})
}

func TestVerdictKey(t *testing.T) {
	a := verdictKey("m", "hi", []string{"a", "b"})
	assert.Equal(t, a, verdictKey("m", "hi", []string{"a", "b"}))
	assert.NotEqual(t, a, verdictKey("m", "hi", []string{"ab"}))
	assert.NotEqual(t, a, verdictKey("other", "hi", []string{"a", "b"}))
	assert.NotEqual(t, verdictKey("m", "hi a", []string{"b"}), verdictKey("m", "hi", []string{"a b"}))
}
