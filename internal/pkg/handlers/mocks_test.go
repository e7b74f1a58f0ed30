package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ideaslabiot/IDEAS-project/internal/pkg/plugapi"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) WithTimeout(d time.Duration) plugapi.Client {
	return m
}

func (m *mockClient) Plug(ctx context.Context, address string) (plugapi.Plug, error) {
	args := m.Called(address)
	p, _ := args.Get(0).(plugapi.Plug)
	return p, args.Error(1)
}

type mockPlug struct {
	mock.Mock
	address string
}

func (m *mockPlug) Address() string {
	return m.address
}

func (m *mockPlug) On(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockPlug) Off(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockPlug) DeviceInfo(ctx context.Context) (*plugapi.DeviceInfo, error) {
	args := m.Called()
	if fn, ok := args.Get(0).(func() *plugapi.DeviceInfo); ok {
		return fn(), args.Error(1)
	}
	info, _ := args.Get(0).(*plugapi.DeviceInfo)
	return info, args.Error(1)
}

func (m *mockPlug) EnergyUsage(ctx context.Context) (*plugapi.EnergyUsage, error) {
	args := m.Called()
	usage, _ := args.Get(0).(*plugapi.EnergyUsage)
	return usage, args.Error(1)
}
