package vkcomp

import (
	"errors"
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/waycomp/compositor/internal/werr"
)

func TestNewVkErrorClassification(t *testing.T) {
	cases := []struct {
		result vk.Result
		want   error
	}{
		{vk.ErrorOutOfDate, werr.OutOfDate},
		{vk.Suboptimal, werr.OutOfDate},
		{vk.NotReady, werr.NotReady},
		{vk.Timeout, werr.Timeout},
		{vk.ErrorDeviceLost, werr.Fatal},
	}
	for _, c := range cases {
		err := newVkError(c.result)
		if !errors.Is(err, c.want) {
			t.Errorf("newVkError(%v) = %v, want errors.Is match for %v", c.result, err, c.want)
		}
	}
}

func TestCheckResultSuccessIsNil(t *testing.T) {
	if err := checkResult(vk.Success); err != nil {
		t.Errorf("checkResult(Success) = %v, want nil", err)
	}
}
