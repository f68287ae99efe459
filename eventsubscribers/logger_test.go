package eventsubscribers

import (
	"errors"
	"testing"
	"time"

	"github.com/mono83/slf"
	"github.com/mono83/slf/params"
	"github.com/mono83/slf/wd"
	"github.com/stretchr/testify/mock"

	"github.com/elyby/yggdrasil/dispatcher"
)

func prepareLoggerArgs(message string, params []slf.Param) []interface{} {
	args := []interface{}{message}
	for _, v := range params {
		args = append(args, v.(interface{}))
	}

	return args
}

type wdMock struct {
	mock.Mock
}

func (m *wdMock) Trace(message string, params ...slf.Param) {
	m.Called(prepareLoggerArgs(message, params)...)
}

func (m *wdMock) Debug(message string, params ...slf.Param) {
	m.Called(prepareLoggerArgs(message, params)...)
}

func (m *wdMock) Info(message string, params ...slf.Param) {
	m.Called(prepareLoggerArgs(message, params)...)
}

func (m *wdMock) Warning(message string, params ...slf.Param) {
	m.Called(prepareLoggerArgs(message, params)...)
}

func (m *wdMock) Error(message string, params ...slf.Param) {
	m.Called(prepareLoggerArgs(message, params)...)
}

func (m *wdMock) Alert(message string, params ...slf.Param) {
	m.Called(prepareLoggerArgs(message, params)...)
}

func (m *wdMock) Emergency(message string, params ...slf.Param) {
	m.Called(prepareLoggerArgs(message, params)...)
}

func (m *wdMock) IncCounter(name string, value int64, p ...slf.Param) {
	m.Called(name, value)
}

func (m *wdMock) UpdateGauge(name string, value int64, p ...slf.Param) {
	m.Called(name, value)
}

func (m *wdMock) RecordTimer(name string, d time.Duration, p ...slf.Param) {
	m.Called(name, d)
}

func (m *wdMock) Timer(name string, p ...slf.Param) slf.Timer {
	return slf.NewTimer(name, p, m)
}

func (m *wdMock) WithParams(p ...slf.Param) wd.Watchdog {
	panic("this method shouldn't be used")
}

type LoggerTestCase struct {
	Events        [][]interface{}
	ExpectedCalls [][]interface{}
}

var loggerTestCases = map[string]*LoggerTestCase{
	"should log unhandled request errors": {
		Events: [][]interface{}{
			{"yggdrasil:error", errors.New("something went wrong")},
		},
		ExpectedCalls: [][]interface{}{
			{"Error", "Unhandled error on request serving: :err",
				mock.MatchedBy(func(errParam params.Error) bool {
					return errParam.Key == "err" && errParam.Value.Error() == "something went wrong"
				}),
			},
		},
	},
	"should warn about invalid api tokens": {
		Events: [][]interface{}{
			{"authenticator:error", errors.New("Cannot parse passed JWT token")},
		},
		ExpectedCalls: [][]interface{}{
			{"Warning", "Cannot authenticate api request: :err", mock.AnythingOfType("params.Error")},
		},
	},
	"should warn about rate limited logins without the email": {
		Events: [][]interface{}{
			{"authentication:rate_limited", "mock@ely.by"},
		},
		ExpectedCalls: [][]interface{}{
			{"Warning", "Too many failed login attempts for an account"},
		},
	},
	"should debug issued sessions": {
		Events: [][]interface{}{
			{"sessions:created", "account-id"},
		},
		ExpectedCalls: [][]interface{}{
			{"Debug", "Issued a new session for :accountId",
				mock.MatchedBy(func(strParam params.String) bool {
					return strParam.Key == "accountId" && strParam.Value == "account-id"
				}),
			},
		},
	},
	"should debug refreshed sessions": {
		Events: [][]interface{}{
			{"sessions:refreshed", "account-id"},
		},
		ExpectedCalls: [][]interface{}{
			{"Debug", "Refreshed a session for :accountId", mock.AnythingOfType("params.String")},
		},
	},
}

func TestLogger(t *testing.T) {
	for name, c := range loggerTestCases {
		t.Run(name, func(t *testing.T) {
			loggerMock := &wdMock{}
			if c.ExpectedCalls != nil {
				for _, c := range c.ExpectedCalls {
					topicName, _ := c[0].(string)
					loggerMock.On(topicName, c[1:]...).Once()
				}
			}

			reporter := &Logger{
				Logger: loggerMock,
			}

			d := dispatcher.New()
			reporter.ConfigureWithDispatcher(d)
			for _, args := range c.Events {
				eventName, _ := args[0].(string)
				d.Emit(eventName, args[1:]...)
			}

			loggerMock.AssertExpectations(t)
		})
	}
}
