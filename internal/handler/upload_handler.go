package handler

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	_ "golang.org/x/image/webp"
)

// UploadImage 处理作品图片上传，保存文件并探测宽高。
func (a *API) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nenhuma imagem enviada", "success": 0})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Apenas arquivos de imagem são permitidos", "success": 0})
		return
	}

	width, height, err := probeImageDimensions(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Imagem inválida ou corrompida", "success": 0})
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Falha ao preparar diretório de upload", "success": 0})
		return
	}

	ext := filepath.Ext(file.Filename)
	newFilename := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	filePath := filepath.Join(a.uploadDir, newFilename)

	if err := c.SaveUploadedFile(file, filePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Falha ao salvar arquivo", "success": 0})
		return
	}

	fileURL := fmt.Sprintf("%s/%s", strings.TrimRight(a.uploadURL, "/"), newFilename)
	c.JSON(http.StatusOK, gin.H{
		"success": 1,
		"message": "Upload concluído",
		"data": gin.H{
			"url":    fileURL,
			"width":  width,
			"height": height,
		},
	})
}

// probeImageDimensions 解码图片头信息获取宽高，支持 png/jpeg/gif/webp。
func probeImageDimensions(file *multipart.FileHeader) (int, int, error) {
	reader, err := file.Open()
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, err
	}

	return cfg.Width, cfg.Height, nil
}
