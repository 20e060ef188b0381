package service

import (
	"context"
	"errors"
	"time"

	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/mautops/maintcontrol/internal/integration"
	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/repository"
	"github.com/mautops/maintcontrol/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options 服务公共依赖
type Options struct {
	Events       integration.EventHandler
	Logger       logrus.FieldLogger
	Now          func() time.Time
	Location     *time.Location
	StrictStatus bool
}

// withDefaults 填充未设置的依赖
func (o Options) withDefaults() Options {
	if o.Events == nil {
		o.Events = integration.NewNopEventHandler()
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// Today 返回配置时区下的当天日期 (YYYY-MM-DD)
func (o Options) Today() string {
	return o.Now().In(o.Location).Format(utils.DateLayout)
}

// emit 事务提交后发布事件,失败只记录日志
func (o Options) emit(ctx context.Context, typ integration.EventType, machineID string, data map[string]interface{}) {
	evt := integration.NewEvent(typ, machineID, data)
	if err := o.Events.Handle(ctx, evt); err != nil {
		o.Logger.WithError(err).WithFields(logrus.Fields{
			"machine": machineID,
			"type":    typ,
		}).Error("failed to publish lifecycle event")
	}
}

// findMachine 根据外部 ID 查找机器
func findMachine(ctx context.Context, repo repository.MachineRepository, id string) (*model.MachineModel, error) {
	machine, err := repo.FindByTag(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("machine %q not found", id)
	}
	if err != nil {
		return nil, apperr.Storage(err, "failed to load machine")
	}
	return machine, nil
}

// txError 将事务错误转换为业务错误
func txError(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("%s: duplicate record", message)
	}
	return apperr.Storage(err, message)
}
