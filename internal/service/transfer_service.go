package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/mautops/maintcontrol/internal/integration"
	"github.com/mautops/maintcontrol/internal/metrics"
	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/repository"
	"github.com/mautops/maintcontrol/internal/utils"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Format 导入导出格式
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat 解析导入导出格式,默认 JSON
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", apperr.Validation("unsupported format %q", s)
	}
}

// ContentType 格式对应的 MIME 类型
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// ExportFileName 默认导出文件名
func ExportFileName(today string, format Format) string {
	return fmt.Sprintf("maintcontrol_backup_%s.%s", today, format)
}

// ImportResult 导入结果
type ImportResult struct {
	Machines  int `json:"machines"`
	Episodes  int `json:"episodes"`
	Steps     int `json:"steps"`
	Schedules int `json:"schedules"`
	History   int `json:"history"`
}

// TransferService 导入导出服务
type TransferService interface {
	Export(ctx context.Context) ([]*MachineView, error)
	ExportTo(ctx context.Context, w io.Writer, format Format) error
	Import(ctx context.Context, machines []*MachineView) (*ImportResult, error)
	ImportFrom(ctx context.Context, r io.Reader, format Format) (*ImportResult, error)
}

// transferService 导入导出服务实现
type transferService struct {
	db           *gorm.DB
	machines     MachineService
	machineRepo  repository.MachineRepository
	maintRepo    repository.MaintenanceRepository
	scheduleRepo repository.ScheduleRepository
	historyRepo  repository.HistoryRepository
	opts         Options
}

// NewTransferService 创建导入导出服务
func NewTransferService(db *gorm.DB, machines MachineService, opts Options) TransferService {
	return &transferService{
		db:           db,
		machines:     machines,
		machineRepo:  repository.NewMachineRepository(db),
		maintRepo:    repository.NewMaintenanceRepository(db),
		scheduleRepo: repository.NewScheduleRepository(db),
		historyRepo:  repository.NewHistoryRepository(db),
		opts:         opts.withDefaults(),
	}
}

// Export 导出全部机器完整视图,不含派生的告警
func (s *transferService) Export(ctx context.Context) ([]*MachineView, error) {
	views, err := s.machines.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		v.Alert = ""
	}
	return views, nil
}

// ExportTo 以指定格式写出导出数据
func (s *transferService) ExportTo(ctx context.Context, w io.Writer, format Format) error {
	views, err := s.Export(ctx)
	if err != nil {
		return err
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(views); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}

// ImportFrom 解析并导入数据
func (s *transferService) ImportFrom(ctx context.Context, r io.Reader, format Format) (*ImportResult, error) {
	var machines []*MachineView
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&machines); err != nil {
			if err == io.EOF {
				return nil, errNotAList
			}
			return nil, apperr.Validation("invalid yaml payload: %s", err.Error())
		}
	default:
		if err := json.NewDecoder(r).Decode(&machines); err != nil {
			if err == io.EOF {
				return nil, errNotAList
			}
			return nil, apperr.Validation("invalid json payload: %s", err.Error())
		}
	}
	// null 或空文档解码为 nil,显式的 [] 才表示清空
	if machines == nil {
		return nil, errNotAList
	}
	return s.Import(ctx, machines)
}

var errNotAList = apperr.Validation("payload must be a list of machines")

// Import 校验全部数据后在一个事务中替换现有数据
// 台账原样恢复,不追加新的台账条目
func (s *transferService) Import(ctx context.Context, machines []*MachineView) (*ImportResult, error) {
	if err := s.validate(machines); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	now := s.opts.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		machineRepo := s.machineRepo.WithTx(tx)
		maintRepo := s.maintRepo.WithTx(tx)
		scheduleRepo := s.scheduleRepo.WithTx(tx)
		historyRepo := s.historyRepo.WithTx(tx)

		if err := maintRepo.DeleteAll(ctx); err != nil {
			return err
		}
		if err := scheduleRepo.DeleteAll(ctx); err != nil {
			return err
		}
		if err := historyRepo.DeleteAll(ctx); err != nil {
			return err
		}
		if err := machineRepo.DeleteAll(ctx); err != nil {
			return err
		}

		for _, v := range machines {
			status := model.StatusOK
			if v.Status != "" {
				status, _ = model.ParseMachineStatus(string(v.Status))
			}
			machine := &model.MachineModel{
				Tag:          strings.TrimSpace(v.ID),
				Name:         strings.TrimSpace(v.Name),
				Capacity:     optionalText(v.Capacity),
				Manufacturer: optionalText(v.Manufacturer),
				Quantity:     model.ClampQuantity(v.Quantity),
				Status:       status,
			}
			if err := machineRepo.Create(ctx, machine); err != nil {
				return err
			}
			result.Machines++

			for _, e := range v.Maintenances {
				typ, _ := model.ParseMaintenanceType(string(e.Type))
				episode := &model.MaintenanceEpisodeModel{
					MachineID:   machine.ID,
					Type:        typ,
					Description: e.Description,
					StartDate:   strings.TrimSpace(e.StartDate),
					EndDate:     trimmedDate(e.EndDate),
				}
				if err := maintRepo.CreateEpisode(ctx, episode); err != nil {
					return err
				}
				result.Episodes++
				for _, st := range e.Steps {
					step := &model.MaintenanceStepModel{
						EpisodeID:   episode.ID,
						Timestamp:   orNow(st.Timestamp, now),
						Description: st.Description,
					}
					if err := maintRepo.AddStep(ctx, step); err != nil {
						return err
					}
					result.Steps++
				}
			}

			if v.NextMaintenance != nil {
				schedule := &model.ScheduleModel{
					MachineID:   machine.ID,
					Date:        strings.TrimSpace(v.NextMaintenance.Date),
					Description: v.NextMaintenance.Description,
					CreatedAt:   now,
				}
				if err := scheduleRepo.Upsert(ctx, schedule); err != nil {
					return err
				}
				result.Schedules++
			}

			for _, h := range v.History {
				entry := &model.HistoryEntryModel{
					MachineID: machine.ID,
					Timestamp: orNow(h.Timestamp, now),
					Text:      h.Text,
				}
				if err := historyRepo.Append(ctx, entry); err != nil {
					return err
				}
				result.History++
			}
		}
		return nil
	})
	err = txError(err, "failed to import data")
	metrics.RecordOperation("data_import", err)
	if err != nil {
		return nil, err
	}

	s.opts.Logger.WithField("machines", result.Machines).Info("data imported")
	s.opts.emit(ctx, integration.EventDataImported, "", map[string]interface{}{
		"machines": result.Machines,
		"episodes": result.Episodes,
	})
	return result, nil
}

// validate 导入前校验全部数据,任何错误都不会修改现有数据
func (s *transferService) validate(machines []*MachineView) error {
	seen := make(map[string]bool, len(machines))
	for i, v := range machines {
		if v == nil {
			return apperr.Validation("machine #%d is empty", i+1)
		}
		tag := strings.TrimSpace(v.ID)
		if err := utils.ValidateMachineTag(tag); err != nil {
			return apperr.Validation("machine #%d: invalid id: %s", i+1, err.Error())
		}
		if seen[tag] {
			return apperr.Validation("machine %q appears more than once", tag)
		}
		seen[tag] = true
		if err := utils.ValidateName(v.Name); err != nil {
			return apperr.Validation("machine %q: invalid name: %s", tag, err.Error())
		}
		status := model.StatusOK
		if v.Status != "" {
			parsed, err := model.ParseMachineStatus(string(v.Status))
			if err != nil {
				return apperr.Validation("machine %q: %s", tag, err.Error())
			}
			status = parsed
		}

		open := 0
		for j, e := range v.Maintenances {
			if e == nil {
				return apperr.Validation("machine %q: maintenance #%d is empty", tag, j+1)
			}
			if _, err := model.ParseMaintenanceType(string(e.Type)); err != nil {
				return apperr.Validation("machine %q: maintenance #%d: %s", tag, j+1, err.Error())
			}
			if strings.TrimSpace(e.Description) == "" {
				return apperr.Validation("machine %q: maintenance #%d: description is required", tag, j+1)
			}
			start, err := utils.ValidateDate(e.StartDate)
			if err != nil {
				return apperr.Validation("machine %q: maintenance #%d: invalid start date", tag, j+1)
			}
			for k, st := range e.Steps {
				if st == nil || strings.TrimSpace(st.Description) == "" {
					return apperr.Validation("machine %q: maintenance #%d: step #%d is empty", tag, j+1, k+1)
				}
			}
			if e.EndDate == nil {
				open++
				continue
			}
			end, err := utils.ValidateDate(*e.EndDate)
			if err != nil {
				return apperr.Validation("machine %q: maintenance #%d: invalid end date", tag, j+1)
			}
			if end < start {
				return apperr.Validation("machine %q: maintenance #%d: end date %s is before start date %s", tag, j+1, end, start)
			}
		}
		if open > 1 {
			return apperr.Validation("machine %q has %d active maintenance episodes", tag, open)
		}
		if s.opts.StrictStatus {
			inMaintenance := status == model.StatusInMaintenance
			if open == 1 && !inMaintenance {
				return apperr.Validation("machine %q: status %s conflicts with its active maintenance episode", tag, status)
			}
			if open == 0 && inMaintenance {
				return apperr.Validation("machine %q: status %s requires an active maintenance episode", tag, status)
			}
		}

		if v.NextMaintenance != nil {
			if _, err := utils.ValidateDate(v.NextMaintenance.Date); err != nil {
				return apperr.Validation("machine %q: invalid schedule date", tag)
			}
		}
		for j, h := range v.History {
			if h == nil || strings.TrimSpace(h.Text) == "" {
				return apperr.Validation("machine %q: history entry #%d is empty", tag, j+1)
			}
		}
	}
	return nil
}

func orNow(t time.Time, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}

func trimmedDate(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
