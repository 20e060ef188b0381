package api

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mautops/maintcontrol/internal/service"
)

// maxImportSize 导入文件大小上限
const maxImportSize = 32 << 20

// TransferController 导入导出控制器
type TransferController struct {
	transferService service.TransferService
	today           func() string
}

// NewTransferController 创建导入导出控制器,today 用于生成导出文件名
func NewTransferController(transferService service.TransferService, today func() string) *TransferController {
	return &TransferController{
		transferService: transferService,
		today:           today,
	}
}

// Export 导出全部数据
// @Summary      导出数据
// @Description  导出全部机器、维护、计划和履历,作为附件下载
// @Tags         数据交换
// @Produce      json
// @Produce      application/yaml
// @Param        format query string false "导出格式" Enums(json, yaml) default(json)
// @Success      200  {array}  service.MachineView
// @Failure      400  {object}  ErrorResponse
// @Router       /export [get]
func (c *TransferController) Export(ctx *gin.Context) {
	format, err := service.ParseFormat(ctx.Query("format"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	// 先导出到内存,失败时仍能返回 JSON 错误
	var buf bytes.Buffer
	if err := c.transferService.ExportTo(ctx.Request.Context(), &buf, format); err != nil {
		HandleServiceError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", `attachment; filename="`+service.ExportFileName(c.today(), format)+`"`)
	ctx.Data(http.StatusOK, format.ContentType()+"; charset=utf-8", buf.Bytes())
}

// Import 导入数据,替换现有全部数据
// @Summary      导入数据
// @Description  请求体或 multipart 字段 file 为导出文件,校验通过后整体替换
// @Tags         数据交换
// @Accept       json
// @Accept       application/yaml
// @Accept       multipart/form-data
// @Produce      json
// @Param        format query string false "导入格式" Enums(json, yaml) default(json)
// @Success      200  {object}  Response{data=service.ImportResult}
// @Failure      400  {object}  ErrorResponse
// @Router       /import [post]
func (c *TransferController) Import(ctx *gin.Context) {
	format, err := service.ParseFormat(ctx.Query("format"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	body, closeBody, err := importBody(ctx)
	if err != nil {
		Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
		return
	}
	defer closeBody()

	result, err := c.transferService.ImportFrom(ctx.Request.Context(), io.LimitReader(body, maxImportSize), format)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Success(ctx, result)
}

// importBody 取上传文件或原始请求体
func importBody(ctx *gin.Context) (io.Reader, func(), error) {
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		header, err := ctx.FormFile("file")
		if err != nil {
			return nil, nil, err
		}
		file, err := header.Open()
		if err != nil {
			return nil, nil, err
		}
		return file, func() { file.Close() }, nil
	}
	return ctx.Request.Body, func() {}, nil
}
