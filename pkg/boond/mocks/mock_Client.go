// Package mocks provides test doubles for the boond client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	boond "github.com/staffline/boond-sync/pkg/boond"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Environment provides a mock function with no fields
func (_m *MockClient) Environment() boond.Environment {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Environment")
	}

	var r0 boond.Environment
	if rf, ok := ret.Get(0).(func() boond.Environment); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(boond.Environment)
	}

	return r0
}

// Get provides a mock function with given fields: ctx, rt, id, view
func (_m *MockClient) Get(ctx context.Context, rt boond.ResourceType, id boond.ID, view boond.DetailView) (*boond.Entity, error) {
	ret := _m.Called(ctx, rt, id, view)

	if len(ret) == 0 {
		panic("no return value specified for Get")
	}

	var r0 *boond.Entity
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, boond.ID, boond.DetailView) (*boond.Entity, error)); ok {
		return rf(ctx, rt, id, view)
	}
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, boond.ID, boond.DetailView) *boond.Entity); ok {
		r0 = rf(ctx, rt, id, view)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*boond.Entity)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, boond.ResourceType, boond.ID, boond.DetailView) error); ok {
		r1 = rf(ctx, rt, id, view)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// List provides a mock function with given fields: ctx, rt, filter
func (_m *MockClient) List(ctx context.Context, rt boond.ResourceType, filter boond.ListFilter) (*boond.Page, error) {
	ret := _m.Called(ctx, rt, filter)

	if len(ret) == 0 {
		panic("no return value specified for List")
	}

	var r0 *boond.Page
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, boond.ListFilter) (*boond.Page, error)); ok {
		return rf(ctx, rt, filter)
	}
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, boond.ListFilter) *boond.Page); ok {
		r0 = rf(ctx, rt, filter)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*boond.Page)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, boond.ResourceType, boond.ListFilter) error); ok {
		r1 = rf(ctx, rt, filter)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetResumes provides a mock function with given fields: ctx, rt, id
func (_m *MockClient) GetResumes(ctx context.Context, rt boond.ResourceType, id boond.ID) ([]boond.Document, error) {
	ret := _m.Called(ctx, rt, id)

	if len(ret) == 0 {
		panic("no return value specified for GetResumes")
	}

	var r0 []boond.Document
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, boond.ID) ([]boond.Document, error)); ok {
		return rf(ctx, rt, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, boond.ID) []boond.Document); ok {
		r0 = rf(ctx, rt, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]boond.Document)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, boond.ResourceType, boond.ID) error); ok {
		r1 = rf(ctx, rt, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// DownloadDocument provides a mock function with given fields: ctx, id
func (_m *MockClient) DownloadDocument(ctx context.Context, id boond.ID) (*boond.DocumentContent, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for DownloadDocument")
	}

	var r0 *boond.DocumentContent
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, boond.ID) (*boond.DocumentContent, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, boond.ID) *boond.DocumentContent); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*boond.DocumentContent)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, boond.ID) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Create provides a mock function with given fields: ctx, rt, attrs
func (_m *MockClient) Create(ctx context.Context, rt boond.ResourceType, attrs map[string]any) (*boond.Entity, error) {
	ret := _m.Called(ctx, rt, attrs)

	if len(ret) == 0 {
		panic("no return value specified for Create")
	}

	var r0 *boond.Entity
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, map[string]any) (*boond.Entity, error)); ok {
		return rf(ctx, rt, attrs)
	}
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, map[string]any) *boond.Entity); ok {
		r0 = rf(ctx, rt, attrs)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*boond.Entity)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, boond.ResourceType, map[string]any) error); ok {
		r1 = rf(ctx, rt, attrs)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Update provides a mock function with given fields: ctx, rt, id, attrs
func (_m *MockClient) Update(ctx context.Context, rt boond.ResourceType, id boond.ID, attrs map[string]any) (*boond.Entity, error) {
	ret := _m.Called(ctx, rt, id, attrs)

	if len(ret) == 0 {
		panic("no return value specified for Update")
	}

	var r0 *boond.Entity
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, boond.ID, map[string]any) (*boond.Entity, error)); ok {
		return rf(ctx, rt, id, attrs)
	}
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, boond.ID, map[string]any) *boond.Entity); ok {
		r0 = rf(ctx, rt, id, attrs)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*boond.Entity)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, boond.ResourceType, boond.ID, map[string]any) error); ok {
		r1 = rf(ctx, rt, id, attrs)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UploadDocument provides a mock function with given fields: ctx, parentType, parentID, content
func (_m *MockClient) UploadDocument(ctx context.Context, parentType boond.ResourceType, parentID boond.ID, content boond.DocumentContent) (*boond.Document, error) {
	ret := _m.Called(ctx, parentType, parentID, content)

	if len(ret) == 0 {
		panic("no return value specified for UploadDocument")
	}

	var r0 *boond.Document
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, boond.ID, boond.DocumentContent) (*boond.Document, error)); ok {
		return rf(ctx, parentType, parentID, content)
	}
	if rf, ok := ret.Get(0).(func(context.Context, boond.ResourceType, boond.ID, boond.DocumentContent) *boond.Document); ok {
		r0 = rf(ctx, parentType, parentID, content)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*boond.Document)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, boond.ResourceType, boond.ID, boond.DocumentContent) error); ok {
		r1 = rf(ctx, parentType, parentID, content)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
