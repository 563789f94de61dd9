package repository

import (
	"fmt"
	"os"

	"gorm.io/gen"

	"KVisit/internal/model"
	"KVisit/pkg/errors"
	"KVisit/storage/database"
)

// ProfileQuerier 引导记录的类型化查询，由 cmd/gen 生成到 internal/repository/query
type ProfileQuerier interface {
	// GetByUserID 根据用户 ID 查询最近一次完成的记录
	//
	// SELECT * FROM @@table WHERE user_id = @userID AND deleted_at IS NULL LIMIT 1
	GetByUserID(userID string) (*gen.T, error)

	// ListByPurpose 按目的分页查询（运营导出）
	//
	// SELECT * FROM @@table
	// WHERE deleted_at IS NULL
	//   {{if purpose != ""}}
	//   AND visit_purpose = @purpose
	//   {{end}}
	//   {{if cursorID > 0}}
	//   AND id < @cursorID
	//   {{end}}
	// ORDER BY id DESC
	// LIMIT @limit
	ListByPurpose(purpose string, cursorID int64, limit int) ([]*gen.T, error)

	// CountByPurpose 各目的完成人数
	//
	// SELECT visit_purpose, COUNT(*) as count
	// FROM @@table
	// WHERE deleted_at IS NULL
	// GROUP BY visit_purpose
	CountByPurpose() ([]gen.M, error)
}

func Generate() error {
	if err := database.Init(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	db := database.DB()
	if db == nil {
		return errors.ErrDatabaseNotInitialized
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./internal/repository/query",
		ModelPkgPath:      "KVisit/internal/model",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    false,
		FieldSignable:     false,
		FieldWithIndexTag: false,
		FieldWithTypeTag:  true,
	})

	g.UseDB(db)

	g.ApplyBasic(&model.OnboardingProfile{})
	g.ApplyInterface(func(ProfileQuerier) {}, &model.OnboardingProfile{})

	g.Execute()

	return nil
}

func RunGenerate() {
	if err := Generate(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate code: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Code generation completed successfully!")
}
